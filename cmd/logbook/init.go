package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/logbook/internal/backend"
	"github.com/mesh-intelligence/logbook/internal/paths"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize logbook storage",
		Long:  "Create the configuration and data directories, then initialize the storage backend.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config directory: %w", err))
	}
	if err := ensureConfigDir(configDir); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}

	cfg := configFile{
		Backend:       defaultBackend,
		DraftDebounce: "400ms",
		Listen:        defaultListen,
		LogLevel:      defaultLogLevel,
		LogFormat:     defaultLogFormat,
	}
	if flags.backend != "" {
		cfg.Backend = flags.backend
	}
	if flags.dataDir != "" {
		abs, err := filepath.Abs(flags.dataDir)
		if err != nil {
			return sysError(err)
		}
		cfg.DataDir = abs
	}
	configPath := filepath.Join(configDir, configFileExt)
	if _, err := writeConfigIfMissing(configPath, cfg); err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}

	s, err := loadSettings()
	if err != nil {
		return sysError(err)
	}
	slots, err := backend.Open(types.Config{Backend: s.Backend, DataDir: s.DataDir}, nil)
	if err != nil {
		return sysError(fmt.Errorf("initialize storage: %w", err))
	}
	if err := slots.Close(); err != nil {
		return sysError(fmt.Errorf("finalize storage: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Logbook initialized successfully")
	fmt.Fprintln(out, "  config: ", configDir)
	fmt.Fprintln(out, "  data:   ", s.DataDir)
	fmt.Fprintln(out, "  backend:", s.Backend)
	return nil
}
