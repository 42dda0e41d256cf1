package cli

import (
	"fmt"

	"github.com/glorpus-work/modelman/internal/logger"
	"github.com/glorpus-work/modelman/pkg/archive"
	"github.com/glorpus-work/modelman/pkg/auth"
	"github.com/glorpus-work/modelman/pkg/config"
	"github.com/glorpus-work/modelman/pkg/download"
	"github.com/glorpus-work/modelman/pkg/hooks"
	"github.com/glorpus-work/modelman/pkg/manifest"
	"github.com/glorpus-work/modelman/pkg/orchestrator"
	"github.com/glorpus-work/modelman/pkg/registry"
)

// These variables will be set by the main package.
var (
	ConfigPath   *string
	Verbose      *bool
	OutputFormat *string
)

func loadConfig() (*config.Config, error) {
	configPath := ""
	if ConfigPath != nil {
		configPath = *ConfigPath
	}

	if configPath == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		configPath = defaultPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}

	logger.InitLogger(cfg.Settings.LogLevel)
	return cfg, nil
}

// buildOrchestrator wires the registry dispatcher, download engine, manifest
// store and hook manager for a command invocation.
func buildOrchestrator(cfg *config.Config, eventHooks orchestrator.Hooks) (*orchestrator.Orchestrator, error) {
	hostedURL := ""
	if reg := cfg.HostedRegistry(); reg != nil {
		hostedURL = reg.URL
	}
	dispatcher := registry.NewDispatcher(hostedURL, cfg.Settings.HTTPTimeout, cfg.Settings.UserAgent)

	store, err := manifest.New(cfg.Settings.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	engine := download.NewManager(download.Config{
		UserAgent:       cfg.Settings.UserAgent,
		MaxConcurrent:   cfg.Settings.MaxConcurrent,
		SidecarInterval: cfg.Settings.SidecarInterval,
		GracePeriod:     cfg.Settings.GracePeriod,
	}, store)

	hookMgr := hooks.NewHookManager()
	if cfg.Settings.HooksDir != "" {
		if err := hooks.LoadHooksFromDir(hookMgr, cfg.Settings.HooksDir); err != nil {
			return nil, fmt.Errorf("failed to load hooks: %w", err)
		}
	}

	opts := orchestrator.Options{
		ModelsDir:      cfg.Settings.ModelsDir,
		MaxRetries:     cfg.Settings.MaxRetries,
		BackoffInitial: cfg.Settings.BackoffInitial,
		BackoffMax:     cfg.Settings.BackoffMax,
	}

	return orchestrator.New(dispatcher, engine, store, hookMgr, archive.NewManager(), eventHooks, opts), nil
}

// hostedCredential returns the authenticator of the active hosted registry,
// or nil for anonymous access.
func hostedCredential(cfg *config.Config) auth.Authenticator {
	reg := cfg.HostedRegistry()
	if reg == nil {
		return nil
	}
	return reg.Auth.ToAuthenticator()
}
