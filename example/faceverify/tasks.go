package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sugarme/gotch/nn"
	"k8s.io/klog/v2"

	"github.com/sugarme/faceir/backbone"
	"github.com/sugarme/faceir/metric"
	"github.com/sugarme/faceir/preprocess"
)

func runModel(vs *nn.VarStore, net *backbone.Backbone) error {
	var params uint64
	for _, x := range vs.TrainableVariables() {
		params += uint64(x.Numel())
	}
	cfg := net.Config()
	fmt.Printf("%v-%d at %dx%d: %d residual units, %s trainable parameters\n",
		cfg.Variant, cfg.Depth, cfg.Resolution, cfg.Resolution, net.NumUnits(), humanize.Comma(int64(params)))
	for _, name := range net.Names() {
		fmt.Println(name)
	}
	return nil
}

// scorePair loads probe and reference as one batch and compares them.
func scorePair(scorer *metric.PairScorer, opts preprocess.Options, probe, reference string) (metric.Similarity, error) {
	x, err := preprocess.LoadBatch(context.Background(), []string{probe, reference}, opts)
	if err != nil {
		return metric.Similarity{}, err
	}
	batch := x.MustTo(Device, true)
	defer batch.MustDrop()

	return scorer.ScorePair(batch)
}

func runCompare(net *backbone.Backbone, opts preprocess.Options, probe, reference string) error {
	if probe == "" || reference == "" {
		return errors.New("compare task needs both -probe and -reference")
	}
	sim, err := scorePair(metric.NewPairScorer(net), opts, probe, reference)
	if err != nil {
		return err
	}
	fmt.Printf("cosine: %.4f\tdissimilarity: %.4f\tsame: %v\n", sim.Cosine, sim.Dissimilarity, sim.Cosine >= threshold)
	return nil
}

func runPairs(net *backbone.Backbone, opts preprocess.Options, input, output, plotFile string) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	pairs, err := readPairs(f)
	f.Close()
	if err != nil {
		return err
	}

	scorer := metric.NewPairScorer(net)
	scores := make([]metric.Similarity, len(pairs))
	bar := progressbar.Default(int64(len(pairs)), "scoring pairs")
	for i, p := range pairs {
		scores[i], err = scorePair(scorer, opts, p.Probe, p.Reference)
		if err != nil {
			return errors.Wrapf(err, "pair %d", i)
		}
		bar.Add(1)
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := writeScores(out, pairs, scores); err != nil {
		return err
	}
	klog.Infof("%d pair scores written to %s", len(pairs), output)

	if acc, ok := accuracy(pairs, scores, threshold); ok {
		fmt.Printf("accuracy at threshold %.2f: %.4f\n", threshold, acc)
	}

	if plotFile != "" {
		if err := plotScores(scores, plotFile); err != nil {
			return err
		}
		klog.Infof("score histogram saved to %s", plotFile)
	}
	return nil
}
