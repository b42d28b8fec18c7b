package cli

import (
	"context"
	"strings"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"ledgerdash/internal/dataset"
	"ledgerdash/internal/report"
)

// Completion describes ledgerctl for shell completion. Category values are
// read from the ledger named by dataFile.
func Completion(dataFile string) *complete.Command {
	files := predict.Files("*.csv")
	var views predict.Set
	for _, g := range report.Granularities() {
		views = append(views, string(g))
	}
	styles := predict.Set{"auto", "dark", "light", "notty"}
	categories := complete.PredictFunc(func(prefix string) []string {
		return categoryNames(dataFile, prefix)
	})

	return &complete.Command{
		Sub: map[string]*complete.Command{
			"validate": {
				Flags: map[string]complete.Predictor{
					"file":  files,
					"raw":   predict.Nothing,
					"style": styles,
					"width": predict.Something,
				},
			},
			"summary": {
				Flags: map[string]complete.Predictor{
					"file":     files,
					"start":    predict.Something,
					"end":      predict.Something,
					"category": categories,
					"view":     views,
					"detail":   categories,
					"raw":      predict.Nothing,
					"style":    styles,
					"width":    predict.Something,
				},
			},
			"export": {
				Flags: map[string]complete.Predictor{
					"file":     files,
					"start":    predict.Something,
					"end":      predict.Something,
					"category": categories,
					"o":        predict.Files("*.csv"),
				},
			},
			"help":     {},
			"flags":    {},
			"commands": {},
		},
	}
}

// categoryNames lists the categories of the ledger starting with prefix. A
// ledger that cannot be read completes nothing.
func categoryNames(path, prefix string) []string {
	snap, err := dataset.New(path, dataset.Options{}).Get(context.Background())
	if err != nil {
		return nil
	}
	var out []string
	for _, c := range report.Categories(snap.Table) {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
