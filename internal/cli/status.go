package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/modelman/pkg/model"
	"github.com/glorpus-work/modelman/pkg/orchestrator"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [REFERENCE]",
		Short: "Show download task status",
		Long: `Show the status of active and recently finished download tasks.
With a reference argument, shows only that task.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return runStatus(ref)
		},
	}

	return cmd
}

func runStatus(ref string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(cfg, orchestrator.Hooks{})
	if err != nil {
		return err
	}

	var snaps []model.TaskSnapshot
	if ref != "" {
		snap, ok, err := orch.Status(ref)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("no task for %s\n", ref)
			return nil
		}
		snaps = append(snaps, snap)
	} else {
		snaps = orch.Active()
	}

	if len(snaps) == 0 {
		fmt.Println("No download tasks")
		return nil
	}

	fmt.Printf("%-45s %-12s %-12s %s\n", "REFERENCE", "STATE", "DOWNLOADED", "TOTAL")
	fmt.Println(strings.Repeat("-", 85))
	for _, s := range snaps {
		total := "unknown"
		if s.BytesTotal > 0 {
			total = humanize.Bytes(uint64(s.BytesTotal))
		}
		fmt.Printf("%-45s %-12s %-12s %s\n",
			s.Reference.Key(), s.State, humanize.Bytes(uint64(s.BytesDownloaded)), total)
	}

	return nil
}
