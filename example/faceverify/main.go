package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	"k8s.io/klog/v2"

	"github.com/sugarme/faceir/backbone"
	"github.com/sugarme/faceir/config"
	"github.com/sugarme/faceir/preprocess"
)

// flag variables
var (
	task       string
	inputPath  string
	outputPath string
	plotPath   string
	probe      string
	reference  string
	threshold  float64
	Device     gotch.Device
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	cfg, err := config.Load()
	if err != nil {
		klog.Fatal(err)
	}

	flag.StringVar(&task, "task", "model", "specify task to run: model, compare or pairs")
	flag.StringVar(&inputPath, "input", "./pairs.csv", "specify pairs CSV (columns probe,reference[,label]) for the 'pairs' task")
	flag.StringVar(&outputPath, "output", "./scores.csv", "specify output CSV for the 'pairs' task")
	flag.StringVar(&plotPath, "plot", "", "specify optional histogram PNG path for the 'pairs' task")
	flag.StringVar(&probe, "probe", "", "specify probe image for the 'compare' task")
	flag.StringVar(&reference, "reference", "", "specify reference image for the 'compare' task")
	flag.Float64Var(&threshold, "threshold", 0.3, "specify cosine threshold above which a pair is the same identity")
	flag.Int64Var(&cfg.Resolution, "resolution", cfg.Resolution, "specify input resolution (112 or 224)")
	flag.IntVar(&cfg.Depth, "depth", cfg.Depth, "specify backbone depth (18, 34, 50, 100, 152 or 200)")
	flag.StringVar(&cfg.Variant, "variant", cfg.Variant, "specify backbone variant (ir or ir_se)")
	flag.StringVar(&cfg.Weights, "weights", cfg.Weights, "specify optional full path to model weight '.ot' file")
	flag.BoolVar(&cfg.BGR, "bgr", cfg.BGR, "feed images in BGR channel order")
	flag.BoolVar(&cfg.Cuda, "cuda", cfg.Cuda, "specify whether using CUDA or not")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "specify number of concurrent image decoders")
	flag.Parse()

	Device = gotch.CPU
	if cfg.Cuda {
		Device = gotch.NewCuda().CudaIfAvailable()
	}

	vs, net, err := buildModel(cfg)
	if err != nil {
		klog.Fatal(err)
	}
	opts := preprocess.Options{
		Resolution: cfg.Resolution,
		BGR:        cfg.BGR,
		Workers:    cfg.Workers,
	}

	switch task {
	case "model":
		err = runModel(vs, net)
	case "compare":
		err = runCompare(net, opts, probe, reference)
	case "pairs":
		err = runPairs(net, opts, absPath(inputPath), absPath(outputPath), plotPath)
	default:
		err = fmt.Errorf("unknown task %q; please specify a valid 'task' flag", task)
	}
	if err != nil {
		klog.Fatal(err)
	}
}

func buildModel(cfg *config.Config) (*nn.VarStore, *backbone.Backbone, error) {
	bcfg, err := cfg.Backbone()
	if err != nil {
		return nil, nil, err
	}
	vs := nn.NewVarStore(Device)
	net, err := backbone.New(vs.Root(), bcfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Weights != "" {
		if err := vs.Load(absPath(cfg.Weights)); err != nil {
			return nil, nil, fmt.Errorf("load weights: %w", err)
		}
		klog.Infof("weights loaded from %s", cfg.Weights)
	} else {
		klog.Warning("no weights given; embeddings come from randomly initialized parameters")
	}
	return vs, net, nil
}

// helper to get absolute file path
func absPath(p string) string {
	fullpath, err := filepath.Abs(p)
	if err != nil {
		klog.Fatal(err)
	}
	return fullpath
}
