// Command convert maps a feature sequence from the source domain to the
// target domain using a jointly fitted GMM. It wraps the library with
// file I/O: JSON models and sequences in, a JSON sequence out, with
// optional trajectory plots, a global-variance report and a sqlite run
// archive.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/banshee-data/spectral.map/internal/config"
	"github.com/banshee-data/spectral.map/internal/feature"
	"github.com/banshee-data/spectral.map/internal/mixture"
	"github.com/banshee-data/spectral.map/internal/modelio"
	"github.com/banshee-data/spectral.map/internal/monitor"
	"github.com/banshee-data/spectral.map/internal/rundb"
	"github.com/banshee-data/spectral.map/internal/vcmap"
)

var (
	modelPath  = flag.String("model", "", "Joint GMM model file (JSON)")
	gvPath     = flag.String("gv", "", "Optional global-variance model file (JSON)")
	inPath     = flag.String("in", "", "Input feature sequence (JSON, one array per frame)")
	outPath    = flag.String("out", "converted.json", "Output sequence file")
	configPath = flag.String("config", "", "Optional tuning config file (JSON)")
	frameMode  = flag.Bool("frame", false, "Frame-by-frame MMSE mapping instead of trajectory mapping")
	plotDir    = flag.String("plot", "", "Write per-dimension trajectory plots to this directory")
	reportPath = flag.String("report", "", "Write a global-variance HTML report to this file")
	dbPath     = flag.String("db", "", "Record the run in this sqlite archive")
)

func main() {
	flag.Parse()
	if *modelPath == "" || *inPath == "" {
		log.Fatal("both -model and -in are required")
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	model, err := modelio.LoadGMM(*modelPath)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}
	src, err := modelio.LoadSequence(*inPath)
	if err != nil {
		log.Fatalf("failed to load input sequence: %v", err)
	}
	log.Printf("Loaded model with %d mixtures, input with %d frames of width %d",
		model.NumComponents(), len(src), len(src[0]))

	start := time.Now()
	var out [][]float64
	if *frameMode {
		out, err = convertFrames(model, src, cfg)
	} else {
		out, err = convertTrajectory(model, src, cfg)
	}
	if err != nil {
		log.Fatalf("conversion failed: %v", err)
	}
	elapsed := time.Since(start)
	log.Printf("Converted %d frames in %s", len(out), elapsed)

	if err := modelio.SaveSequence(*outPath, out); err != nil {
		log.Fatalf("failed to write output: %v", err)
	}

	if *dbPath != "" {
		recordRun(model, src, out, cfg, elapsed)
	}
}

// convertFrames runs the frame-local MMSE mapper over a static-feature
// sequence.
func convertFrames(model mixture.Model, src [][]float64, cfg *config.TuningConfig) ([][]float64, error) {
	m, err := vcmap.New(model, cfg.GetSwap())
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(src))
	for i, x := range src {
		y, err := m.Convert(x)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}

// convertTrajectory runs the sequence-level maximum-likelihood mapper,
// with GV refinement when configured, and writes the optional
// diagnostics.
func convertTrajectory(model mixture.Model, src [][]float64, cfg *config.TuningConfig) ([][]float64, error) {
	var gv mixture.Model
	if *gvPath != "" {
		loaded, err := modelio.LoadGV(*gvPath)
		if err != nil {
			return nil, err
		}
		gv = loaded
	}

	m, err := vcmap.NewTrajectory(model, gv, cfg.GetSwap())
	if err != nil {
		return nil, err
	}

	// A static-only input sequence gets its delta features appended
	// here; pre-stacked static+delta input passes through untouched.
	if len(src[0]) == m.Order() {
		log.Printf("Appending delta features to %d static frames", len(src))
		src = feature.JoinStaticDelta(src)
	}

	converted, err := m.Convert(src)
	if err != nil {
		return nil, err
	}

	out := converted
	useGV := gv != nil && cfg.GetUseGV()
	if useGV {
		out, err = m.ConvertGV(src, cfg.GetGVEpochs(), cfg.GetGVLearningRate())
		if err != nil {
			return nil, err
		}
	}

	if *plotDir != "" {
		if err := writePlots(converted, out, useGV); err != nil {
			log.Printf("failed to write plots: %v", err)
		}
	}
	if *reportPath != "" {
		var refined, target []float64
		if useGV {
			refined = monitor.GlobalVariance(out)
		}
		if gv != nil {
			target = gv.Mean(0)
		}
		if err := monitor.WriteGVReport(*reportPath, monitor.GlobalVariance(converted), refined, target); err != nil {
			log.Printf("failed to write gv report: %v", err)
		}
	}

	return out, nil
}

func writePlots(converted, refined [][]float64, useGV bool) error {
	tp := monitor.NewTrajectoryPlotter(*plotDir)
	if err := tp.Add("converted", converted); err != nil {
		return err
	}
	if useGV {
		if err := tp.Add("gv-refined", refined); err != nil {
			return err
		}
	}
	n, err := tp.WritePlots()
	if err != nil {
		return err
	}
	log.Printf("Wrote %d plots to %s", n, *plotDir)
	return nil
}

func recordRun(model *mixture.StaticModel, src, out [][]float64, cfg *config.TuningConfig, elapsed time.Duration) {
	db, err := rundb.Open(*dbPath)
	if err != nil {
		log.Printf("failed to open run db: %v", err)
		return
	}
	defer db.Close()

	run := &rundb.Run{
		ModelPath:     *modelPath,
		InputPath:     *inPath,
		Frames:        len(src),
		FeatureOrder:  len(out[0]),
		Mixtures:      model.NumComponents(),
		Swap:          cfg.GetSwap(),
		GV:            !*frameMode && *gvPath != "" && cfg.GetUseGV(),
		DurationNanos: elapsed.Nanoseconds(),
	}
	if run.GV {
		run.GVEpochs = cfg.GetGVEpochs()
		run.GVLearningRate = cfg.GetGVLearningRate()
	}
	if err := db.InsertRun(run); err != nil {
		log.Printf("failed to record run: %v", err)
		return
	}
	log.Printf("Recorded run %s", run.RunID)
}
