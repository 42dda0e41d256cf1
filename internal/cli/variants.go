package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/modelman/pkg/orchestrator"
)

// NewVariantsCmd creates the variants command.
func NewVariantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "variants REFERENCE",
		Short: "List available quantization variants",
		Long: `List the quantization variants a hosted registry offers for a model
reference, without downloading anything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVariants(cmd, args[0])
		},
	}

	return cmd
}

func runVariants(cmd *cobra.Command, ref string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(cfg, orchestrator.Hooks{})
	if err != nil {
		return err
	}

	variants, err := orch.ListVariants(cmd.Context(), ref, hostedCredential(cfg))
	if err != nil {
		return fmt.Errorf("failed to list variants of %s: %w", ref, err)
	}

	if cfg.Settings.OutputFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(variants)
	}

	if len(variants) == 0 {
		fmt.Println("No variants available")
		return nil
	}

	fmt.Printf("%-12s %-35s %s\n", "VARIANT", "FILENAME", "SIZE")
	fmt.Println(strings.Repeat("-", 60))
	for _, v := range variants {
		size := "unknown"
		if v.Size > 0 {
			size = humanize.Bytes(uint64(v.Size))
		}
		fmt.Printf("%-12s %-35s %s\n", v.Label, v.Filename, size)
	}

	return nil
}
