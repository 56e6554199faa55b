package report

import (
	"strconv"

	"github.com/panbanda/cohesion/internal/output"
	"github.com/panbanda/cohesion/pkg/analyzer/cohesion"
)

// SummaryTable lays out run-wide statistics as a two-column table.
func SummaryTable(sum cohesion.Summary) *output.Table {
	rows := [][]string{
		{"Files", strconv.Itoa(sum.Files)},
		{"Classes", strconv.Itoa(sum.Classes)},
		{"Methods", strconv.Itoa(sum.Methods)},
		{"Variables", strconv.Itoa(sum.Variables)},
		{"Mean cohesion", FormatScore(sum.MeanCohesion) + "%"},
		{"Median cohesion", FormatScore(sum.MedianCohesion) + "%"},
		{"Std dev", FormatScore(sum.StdDevCohesion)},
		{"Min cohesion", FormatScore(sum.MinCohesion) + "%"},
		{"Max cohesion", FormatScore(sum.MaxCohesion) + "%"},
	}
	return output.NewTable("Summary", []string{"Metric", "Value"}, rows, nil, sum)
}
