package main

import (
	"errors"

	"github.com/panbanda/cohesion/internal/output"
	"github.com/panbanda/cohesion/internal/report"
	"github.com/panbanda/cohesion/pkg/analyzer/cohesion"
	"github.com/panbanda/cohesion/pkg/config"
	"github.com/urfave/cli/v2"
)

var (
	errVerboseDebug = errors.New("--verbose and --debug are mutually exclusive")
	errBelowAbove   = errors.New("--below and --above are mutually exclusive")
)

// filter is a parsed --below or --above option.
type filter struct {
	below     bool
	threshold float64
}

func parseFilter(c *cli.Context) (*filter, error) {
	below, above := c.IsSet("below"), c.IsSet("above")
	switch {
	case below && above:
		return nil, errBelowAbove
	case below:
		t, err := config.ParsePercentage(c.String("below"))
		if err != nil {
			return nil, err
		}
		return &filter{below: true, threshold: t}, nil
	case above:
		t, err := config.ParsePercentage(c.String("above"))
		if err != nil {
			return nil, err
		}
		return &filter{threshold: t}, nil
	}
	return nil, nil
}

func (f *filter) apply(s *cohesion.Structure) {
	if f == nil {
		return
	}
	if f.below {
		s.FilterBelow(f.threshold)
	} else {
		s.FilterAbove(f.threshold)
	}
}

func runReportCmd(c *cli.Context) error {
	if c.Bool("verbose") && c.Bool("debug") {
		return errVerboseDebug
	}
	flt, err := parseFilter(c)
	if err != nil {
		return err
	}

	sess, err := newSession(c)
	if err != nil {
		return err
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
	for _, s := range structures {
		flt.apply(s)
	}

	var out output.Renderable = report.NewFileReport(structures, c.Bool("verbose") || sess.cfg.Output.Verbose, sess.cfg.Lint.Threshold)
	if c.Bool("debug") {
		out = &report.Dump{Structures: structures}
	}
	if c.Bool("summary") {
		out = &output.Report{Sections: []output.Renderable{out, report.SummaryTable(cohesion.Summarize(structures...))}}
	}

	f, err := sess.formatter(c)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Output(out); err != nil {
		return err
	}

	return reportFailures(c, errs)
}
