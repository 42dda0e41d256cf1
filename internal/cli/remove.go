package cli

import (
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/modelman/internal/logger"
	"github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/orchestrator"
)

// NewRemoveCmd creates the remove command.
func NewRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove REFERENCE...",
		Short: "Remove installed models",
		Long: `Remove one or more installed models: the artifact file, any extracted
bundle contents and the manifest entry. A model whose download is still
running cannot be removed; cancel it first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, args)
		},
	}

	return cmd
}

func runRemove(cmd *cobra.Command, refs []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(cfg, orchestrator.Hooks{})
	if err != nil {
		return err
	}

	for _, ref := range refs {
		err := orch.Delete(cmd.Context(), ref)
		switch {
		case err == nil:
			logger.Success("Model removed", logger.Fields{"ref": ref})
		case stderrors.Is(err, errors.ErrNotInstalled):
			logger.Warn("Model not installed, skipping", logger.Fields{"ref": ref})
		default:
			return fmt.Errorf("failed to remove %s: %w", ref, err)
		}
	}

	return nil
}
