package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/blepad/pkg/config"
)

// loadConfig reads --config and applies the global overrides on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("layout") {
		cfg.Layout, _ = flags.GetString("layout")
	}
	if flags.Changed("input") {
		cfg.Input.Driver, _ = flags.GetString("input")
	}
	if flags.Changed("script") {
		cfg.Input.ScriptPath, _ = flags.GetString("script")
		if !flags.Changed("input") {
			cfg.Input.Driver = config.DriverScript
			if strings.HasSuffix(cfg.Input.ScriptPath, ".lua") {
				cfg.Input.Driver = config.DriverLua
			}
		}
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
