package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	// -v is --verbose here.
	cli.VersionFlag = &cli.BoolFlag{
		Name:               "version",
		Usage:              "print the version",
		DisableDefaultText: true,
	}

	return &cli.App{
		Name:    "cohesion",
		Usage:   "Measure Python class cohesion",
		Version: version,
		Description: `cohesion reports, for every Python class, the share of (variable, method)
pairs in which the method uses the variable. Low scores point at classes
doing several unrelated jobs.

Examples:
  cohesion -f app/models.py
  cohesion -d src -b 40 -v
  cohesion lint -d src --threshold 30
  cohesion -d src --ref HEAD~1 --format json`,
		Flags: append(append(reportFlags(), selectionFlags()...), append(analysisFlags(), globalFlags()...)...),
		Action: runReportCmd,
		Commands: []*cli.Command{
			lintCmd(),
			watchCmd(),
			mcpCmd(),
			initCmd(),
			configCmd(),
			cacheCmd(),
		},
	}
}

// globalFlags apply to every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file (TOML, YAML, or JSON)",
			EnvVars: []string{"COHESION_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format: text, json, yaml, markdown, toon (default from config)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to file",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Value: "warn",
			Usage: "Diagnostic log level: debug, info, warn, error",
		},
	}
}

// selectionFlags pick the files to analyze.
func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "files",
			Aliases: []string{"f"},
			Usage:   "Analyze these Python files",
		},
		&cli.StringFlag{
			Name:    "directory",
			Aliases: []string{"d"},
			Usage:   "Recursively analyze this directory of Python files",
		},
		&cli.StringFlag{
			Name:  "ref",
			Usage: "Read files as of this git revision instead of the working tree",
		},
	}
}

// analysisFlags override the analysis section of the config.
func analysisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "bound-name",
			Usage: "Receiver parameter that marks instance methods (default from config, self)",
		},
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "Files analyzed in parallel (0 = 2x CPUs)",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Disable the result cache",
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "Do not show a progress bar",
		},
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Print per-variable usage for each method",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"x"},
			Usage:   "Print the full structure of each file",
		},
		&cli.StringFlag{
			Name:    "below",
			Aliases: []string{"b"},
			Usage:   "Only show classes with this percentage or lower",
		},
		&cli.StringFlag{
			Name:    "above",
			Aliases: []string{"a"},
			Usage:   "Only show classes with this percentage or higher",
		},
		&cli.BoolFlag{
			Name:  "summary",
			Usage: "Append run-wide statistics",
		},
	}
}
