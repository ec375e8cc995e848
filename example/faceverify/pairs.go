package main

import (
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sugarme/faceir/metric"
)

// pair is one row of the pairs CSV. Label is -1 when the CSV has no label
// column, 1 for the same identity and 0 otherwise.
type pair struct {
	Probe     string
	Reference string
	Label     int
}

func readPairs(r io.Reader) ([]pair, error) {
	df := dataframe.ReadCSV(r)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "read pairs")
	}

	hasCol := func(name string) bool {
		for _, n := range df.Names() {
			if n == name {
				return true
			}
		}
		return false
	}
	if !hasCol("probe") || !hasCol("reference") {
		return nil, errors.Errorf("pairs CSV needs 'probe' and 'reference' columns, got %v", df.Names())
	}

	probes := df.Col("probe").Records()
	refs := df.Col("reference").Records()
	var labels []int
	if hasCol("label") {
		var err error
		if labels, err = df.Col("label").Int(); err != nil {
			return nil, errors.Wrap(err, "read pairs: label column")
		}
	}

	pairs := make([]pair, df.Nrow())
	for i := range pairs {
		pairs[i] = pair{Probe: probes[i], Reference: refs[i], Label: -1}
		if labels != nil {
			pairs[i].Label = labels[i]
		}
	}
	return pairs, nil
}

func writeScores(w io.Writer, pairs []pair, scores []metric.Similarity) error {
	if len(pairs) != len(scores) {
		return errors.Errorf("%d pairs but %d scores", len(pairs), len(scores))
	}
	probes := make([]string, len(pairs))
	refs := make([]string, len(pairs))
	cos := make([]float64, len(pairs))
	dis := make([]float64, len(pairs))
	for i, p := range pairs {
		probes[i] = p.Probe
		refs[i] = p.Reference
		cos[i] = scores[i].Cosine
		dis[i] = scores[i].Dissimilarity
	}

	df := dataframe.New(
		series.New(probes, series.String, "probe"),
		series.New(refs, series.String, "reference"),
		series.New(dis, series.Float, "dissimilarity"),
		series.New(cos, series.Float, "cosine"),
	)
	return df.WriteCSV(w)
}

// accuracy is the share of labelled pairs classified right at threshold.
// ok is false when no pair carries a label.
func accuracy(pairs []pair, scores []metric.Similarity, threshold float64) (acc float64, ok bool) {
	var n, right int
	for i, p := range pairs {
		if p.Label < 0 {
			continue
		}
		n++
		same := scores[i].Cosine >= threshold
		if same == (p.Label == 1) {
			right++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(right) / float64(n), true
}

func plotScores(scores []metric.Similarity, file string) error {
	vals := make(plotter.Values, len(scores))
	for i, s := range scores {
		vals[i] = s.Cosine
	}

	p := plot.New()
	p.Title.Text = "Pair cosine similarity"
	p.X.Label.Text = "cosine"
	p.Y.Label.Text = "pairs"

	h, err := plotter.NewHist(vals, 40)
	if err != nil {
		return err
	}
	p.Add(h)

	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}
