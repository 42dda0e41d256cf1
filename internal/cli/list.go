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

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var nameFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed models",
		Long: `List all installed models from the local manifest.

By default, shows reference, variant, size and verification state.
Use --name to filter models by reference (partial match).`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runList(nameFilter)
		},
	}

	cmd.Flags().StringVar(&nameFilter, "name", "", "Filter models by reference (partial match)")

	return cmd
}

func runList(nameFilter string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(cfg, orchestrator.Hooks{})
	if err != nil {
		return err
	}

	entries := orch.ListInstalled()
	if nameFilter != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if strings.Contains(e.Reference.Key(), nameFilter) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if cfg.Settings.OutputFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No models installed")
		return nil
	}

	fmt.Printf("%-45s %-12s %-10s %s\n", "REFERENCE", "VARIANT", "SIZE", "STATUS")
	fmt.Println(strings.Repeat("-", 80))
	for _, e := range entries {
		status := "verified"
		if e.Unverified {
			status = "unverified"
		}
		fmt.Printf("%-45s %-12s %-10s %s\n",
			e.Reference.Key(), e.VariantLabel, humanize.Bytes(uint64(e.SizeBytes)), status)
	}

	return nil
}
