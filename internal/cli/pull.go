package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/modelman/internal/logger"
	"github.com/glorpus-work/modelman/pkg/download"
	"github.com/glorpus-work/modelman/pkg/model"
	"github.com/glorpus-work/modelman/pkg/orchestrator"
)

// NewPullCmd creates the pull command.
func NewPullCmd() *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:   "pull REFERENCE...",
		Short: "Download model artifacts",
		Long: `Download one or more model artifacts and record them in the manifest.

A reference is either "owner/repo:tag@quant" against the configured registry
or a direct http(s) URL. Interrupted downloads resume from their partial
state on the next pull.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(cmd, args, detach)
		},
	}

	cmd.Flags().BoolVar(&detach, "detach", false, "Start downloads without waiting for completion")

	return cmd
}

func runPull(cmd *cobra.Command, refs []string, detach bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(cfg, orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
		logger.Debug(e.Phase, logger.Fields{"ref": e.Ref, "msg": e.Msg})
	}})
	if err != nil {
		return err
	}

	credential := hostedCredential(cfg)
	ctx := cmd.Context()

	for _, ref := range refs {
		handle, err := orch.RequestDownload(ctx, ref, credential)
		if err != nil {
			return fmt.Errorf("failed to start download of %s: %w", ref, err)
		}

		if detach {
			fmt.Printf("started %s\n", handle.Reference().Key())
			continue
		}

		if err := watchProgress(ctx, orch, handle); err != nil {
			return err
		}
	}

	return nil
}

// watchProgress renders the progress feed until the task terminates. An
// interrupted context is translated into a cooperative cancel; the engine
// keeps the partial state for a later resume.
func watchProgress(ctx context.Context, orch *orchestrator.Orchestrator, handle *download.Handle) error {
	key := handle.Reference().Key()
	events := handle.Events()

	var last model.Progress
	cancelSent := false
	for {
		ctxDone := ctx.Done()
		if cancelSent {
			ctxDone = nil
		}

		select {
		case <-ctxDone:
			_, _ = orch.Cancel(key)
			cancelSent = true
		case p, ok := <-events:
			if !ok {
				fmt.Println()
				return finishWatch(key, last)
			}
			last = p
			fmt.Printf("\r%s: %s", key, formatProgress(p))
		}
	}
}

func finishWatch(key string, last model.Progress) error {
	switch last.State {
	case model.TaskCompleted:
		logger.Success("Model installed", logger.Fields{"ref": key})
		return nil
	case model.TaskCancelled:
		return fmt.Errorf("download of %s was cancelled", key)
	default:
		return fmt.Errorf("download of %s failed: %s", key, last.Error)
	}
}

func formatProgress(p model.Progress) string {
	switch p.State {
	case model.TaskQueued:
		return "queued"
	case model.TaskVerifying:
		return "verifying checksum"
	case model.TaskCompleted:
		return "done"
	case model.TaskFailed:
		return "failed"
	case model.TaskCancelled:
		return "cancelled"
	}

	downloaded := humanize.Bytes(uint64(p.BytesDownloaded))
	speed := humanize.Bytes(uint64(p.SpeedBPS)) + "/s"

	if p.Percent < 0 {
		return fmt.Sprintf("%s %s", downloaded, speed)
	}

	eta := "--"
	if p.ETASeconds >= 0 {
		eta = (time.Duration(p.ETASeconds) * time.Second).String()
	}
	return fmt.Sprintf("%5.1f%% %s/%s %s ETA %s",
		p.Percent, downloaded, humanize.Bytes(uint64(p.BytesTotal)), speed, eta)
}
