package main

import (
	"fmt"

	"github.com/panbanda/cohesion/internal/report"
	"github.com/panbanda/cohesion/pkg/config"
	"github.com/urfave/cli/v2"
)

func lintCmd() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "threshold",
			Aliases: []string{"t", "cohesion-below"},
			Usage:   "Report classes at or below this percentage (default from config, 50)",
		},
		&cli.StringFlag{
			Name:  "code",
			Usage: "Finding code (default from config, C501)",
		},
	}
	flags = append(flags, selectionFlags()...)
	flags = append(flags, analysisFlags()...)
	flags = append(flags, globalFlags()...)

	return &cli.Command{
		Name:  "lint",
		Usage: "Report low-cohesion classes as lint findings",
		Description: `Prints one finding per class whose cohesion is at or below the threshold,
in path:line:column form. Exits non-zero when there are findings.

Examples:
  cohesion lint -d src
  cohesion lint -f app/models.py -t 30 --code C510`,
		Flags:  flags,
		Action: runLintCmd,
	}
}

func runLintCmd(c *cli.Context) error {
	sess, err := newSession(c)
	if err != nil {
		return err
	}

	threshold := sess.cfg.Lint.Threshold
	if c.IsSet("threshold") {
		threshold, err = config.ParsePercentage(c.String("threshold"))
		if err != nil {
			return err
		}
	}
	code := sess.cfg.Lint.Code
	if c.IsSet("code") {
		code = c.String("code")
	}

	files, src, err := sess.selectFiles(c)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		sess.warn(c, "No Python files found")
		return nil
	}

	structures, errs, err := sess.analyze(c, files, src)
	if err != nil {
		return err
	}
	findings := report.Findings(report.Lint(structures, threshold, code))

	f, err := sess.formatter(c)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Output(findings); err != nil {
		return err
	}

	if err := reportFailures(c, errs); err != nil {
		return err
	}
	if len(findings) > 0 {
		return fmt.Errorf("%d class(es) below %s%% cohesion", len(findings), report.FormatScore(threshold))
	}
	return nil
}
