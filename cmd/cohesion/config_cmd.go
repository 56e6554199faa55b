package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/cohesion/internal/output"
	"github.com/panbanda/cohesion/pkg/config"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"
)

func configCmd() *cli.Command {
	configFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file",
			EnvVars: []string{"COHESION_CONFIG"},
		}
	}

	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Validates a cohesion configuration file for syntax errors and invalid values.

Examples:
  cohesion config validate                  # Validates default config locations
  cohesion config validate -c cohesion.toml # Validates specific file`,
				Flags:  []cli.Flag{configFlag()},
				Action: runConfigValidate,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the configuration after layering the config file over the defaults.

Examples:
  cohesion config show
  cohesion config show -c cohesion.toml --format json`,
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "format",
						Value: "toml",
						Usage: "Output format: toml, json, yaml",
					},
				},
				Action: runConfigShow,
			},
		},
	}
}

func runConfigValidate(c *cli.Context) error {
	_, path, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		color.New(color.FgRed).Fprintln(c.App.ErrWriter, "Configuration validation failed:")
		fmt.Fprintf(c.App.ErrWriter, "  - %s\n", err)
		return err
	}

	if path != "" {
		color.New(color.FgGreen).Fprintf(c.App.Writer, "Configuration valid: %s\n", path)
	} else {
		color.New(color.FgYellow).Fprintln(c.App.Writer, "No config file found. Default configuration is valid.")
	}
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, path, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return err
	}

	format := c.String("format")
	if format != "toml" {
		data, err := output.Marshal(output.ParseFormat(format), cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = c.App.Writer.Write(data)
		return err
	}

	if path != "" {
		fmt.Fprintf(c.App.Writer, "# Configuration from: %s\n\n", path)
	} else {
		fmt.Fprintln(c.App.Writer, "# Default configuration (no config file found)")
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = c.App.Writer.Write(content)
	return err
}
