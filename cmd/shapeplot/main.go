// Command shapeplot trains a glassboost regression model from .npy inputs
// and renders the per-feature shape functions -- the additive model's lookup
// tables -- as PNG plots.
//
// Usage:
//
//	shapeplot -inputs X.npy -targets y.npy -out shapes/ [-steps 200] [-rate 0.1] [-splits 8] [-bags 4]
//
// X.npy is a row-major case x feature matrix of non-negative integer bin
// indexes; y.npy is a vector of real targets.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/glassboost/boost"
	"github.com/ezoic/glassboost/dataio"
	"github.com/ezoic/glassboost/pkg/log"
)

func main() {
	inputsPath := flag.String("inputs", "", "path to the .npy matrix of bin indexes")
	targetsPath := flag.String("targets", "", "path to the .npy vector of targets")
	outDir := flag.String("out", "shapes", "directory for the rendered plots")
	steps := flag.Int("steps", 200, "boosting rounds over all features")
	rate := flag.Float64("rate", 0.1, "learning rate")
	splits := flag.Int64("splits", 8, "max tree splits per fit")
	bags := flag.Int64("bags", 4, "inner bag count")
	level := flag.String("log", "info", "log level")
	flag.Parse()

	log.SetupLogger(*level)
	logger := log.GetLoggerWithName("cmd.shapeplot")

	if *inputsPath == "" || *targetsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	m, err := dataio.ReadMatrix(*inputsPath)
	if err != nil {
		log.LogError(err, "failed to read inputs")
		os.Exit(1)
	}
	targets, err := dataio.ReadVector(*targetsPath)
	if err != nil {
		log.LogError(err, "failed to read targets")
		os.Exit(1)
	}
	inputs, features, err := dataio.ToBinInputs(m)
	if err != nil {
		log.LogError(err, "failed to bin inputs")
		os.Exit(1)
	}

	// one combination per feature: the classic additive model
	combinations := make([][]int, len(features))
	for i := range features {
		combinations[i] = []int{i}
	}

	data := boost.DataSpec{Inputs: inputs, Targets: targets}
	trainer, err := boost.InitializeRegression(boost.Params{
		Seed:          1,
		Features:      features,
		Combinations:  combinations,
		InnerBagCount: *bags,
	}, data, data)
	if err != nil {
		log.LogError(err, "failed to initialize trainer")
		os.Exit(1)
	}

	opt := boost.UpdateOptions{
		LearningRate:  *rate,
		MaxTreeSplits: *splits,
	}
	var metric float64
	for round := 0; round < *steps; round++ {
		for combo := range combinations {
			metric, err = trainer.Step(combo, opt)
			if err != nil {
				log.LogError(err, "training step failed", "round", round, "combination", combo)
				os.Exit(1)
			}
		}
	}
	logger.Info("training finished", "rounds", *steps, "finalMetric", metric, "bestMetric", trainer.BestMetric())

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.LogError(err, "failed to create output directory")
		os.Exit(1)
	}
	for i, feat := range features {
		if err := renderShape(trainer, i, int(feat.BinCount), *outDir); err != nil {
			log.LogError(err, "failed to render shape", "feature", i)
			os.Exit(1)
		}
	}
	logger.Info("shapes rendered", "directory", *outDir, "features", len(features))
}

// renderShape plots the best model's lookup table for one feature.
func renderShape(trainer *boost.Trainer, featureIndex, binCount int, outDir string) error {
	values := trainer.GetBestModel(featureIndex)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("feature %d", featureIndex)
	p.X.Label.Text = "bin"
	p.Y.Label.Text = "contribution"

	xys := make(plotter.XYs, binCount)
	for b := 0; b < binCount; b++ {
		xys[b].X = float64(b)
		xys[b].Y = values[b]
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	p.Add(line, plotter.NewGrid())

	name := filepath.Join(outDir, fmt.Sprintf("feature_%03d.png", featureIndex))
	return p.Save(6*vg.Inch, 4*vg.Inch, name)
}
