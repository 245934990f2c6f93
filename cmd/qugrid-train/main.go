// qugrid-train trains the variational quantum classifier on a CSV of labeled
// pixel-grid drawings and writes the trained parameters plus the loss history
// to a JSON file.
//
// Example:
//
//	qugrid-train -data symbols.csv -grid 3 -max_iter 200 -backend statevector:seed=1
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/gomlx/qugrid/ansatz"
	"github.com/gomlx/qugrid/backends"
	"github.com/gomlx/qugrid/circuits/transpile"
	"github.com/gomlx/qugrid/datasets"
	"github.com/gomlx/qugrid/encoders"
	"github.com/gomlx/qugrid/eval"
	"github.com/gomlx/qugrid/observables"
	"github.com/gomlx/qugrid/optimizers"
	"github.com/gomlx/qugrid/train"

	_ "github.com/gomlx/qugrid/backends/statevector"
)

var (
	flagConfig    = flag.String("config", "", "Optional YAML config file; flags override its fields.")
	flagData      = flag.String("data", "", "CSV of samples: flattened row-major pixels, label last.")
	flagGrid      = flag.Int("grid", 0, "Image grid dimension N (images are NxN).")
	flagBackend   = flag.String("backend", "", "Backend configuration, \"<name>:<config>\".")
	flagOptimizer = flag.String("optimizer", "", "Optimizer name: neldermead or cmaes.")
	flagLayers    = flag.Int("layers", 0, "Ansatz layers.")
	flagBatch     = flag.Int("batch", 0, "Mini-batch size.")
	flagMaxIter   = flag.Int("max_iter", 0, "Objective evaluation budget.")
	flagShots     = flag.Int("shots", -1, "Shots per execution; 0 for exact simulation.")
	flagSeed      = flag.Int64("seed", -1, "Seed for initialization, batching and split.")
	flagDevice    = flag.String("device", "", "Transpile for a device: linear, grid or full.")
	flagOutput    = flag.String("output", "", "Output JSON path for θ and loss history.")
	flagQuiet     = flag.Bool("quiet", false, "Disable the progress bar.")
)

// model is the persisted training artifact.
type model struct {
	GridDim   int       `json:"grid_dim"`
	Layers    int       `json:"layers"`
	Theta     []float64 `json:"theta"`
	Loss      float64   `json:"loss"`
	TestLoss  *float64  `json:"test_loss,omitempty"`
	Reason    string    `json:"reason"`
	History   []float64 `json:"history"`
	TrainedAt time.Time `json:"trained_at"`
}

func buildConfig() Config {
	cfg := DefaultConfig()
	if *flagConfig != "" {
		cfg = must.M1(LoadConfig(*flagConfig))
	}
	if *flagData != "" {
		cfg.Data = *flagData
	}
	if *flagGrid > 0 {
		cfg.GridDim = *flagGrid
	}
	if *flagBackend != "" {
		cfg.Backend = *flagBackend
	}
	if *flagOptimizer != "" {
		cfg.Optimizer = *flagOptimizer
	}
	if *flagLayers > 0 {
		cfg.Layers = *flagLayers
	}
	if *flagBatch > 0 {
		cfg.BatchSize = *flagBatch
	}
	if *flagMaxIter > 0 {
		cfg.MaxIterations = *flagMaxIter
	}
	if *flagShots >= 0 {
		cfg.Shots = *flagShots
	}
	if *flagSeed >= 0 {
		cfg.Seed = *flagSeed
	}
	if *flagDevice != "" {
		cfg.Device = *flagDevice
	}
	if *flagOutput != "" {
		cfg.Output = *flagOutput
	}
	return cfg
}

func deviceFor(cfg Config, numQubits int) (transpile.Device, bool) {
	switch cfg.Device {
	case "linear":
		return transpile.Linear(numQubits), true
	case "grid":
		return transpile.Grid(cfg.GridDim, cfg.GridDim), true
	case "full":
		return transpile.FullyConnected(numQubits), true
	}
	return transpile.Device{}, false
}

func run(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	dataset, err := datasets.LoadFile(cfg.Data, cfg.GridDim, cfg.Labels...)
	if err != nil {
		return err
	}
	trainSet, testSet := dataset.Split(cfg.TestFraction, cfg.Seed)
	fmt.Printf("Loaded %s samples (%s train, %s test) of %dx%d images.\n",
		humanize.Comma(int64(dataset.Len())), humanize.Comma(int64(trainSet.Len())),
		humanize.Comma(int64(testSet.Len())), cfg.GridDim, cfg.GridDim)

	backend, err := backends.NewWithConfig(cfg.Backend)
	if err != nil {
		return err
	}
	fmt.Printf("Backend: %s (%s)\n", backend.Name(), backend.Description())

	encoder := encoders.New(cfg.GridDim)
	builder := ansatz.New(cfg.GridDim).WithLayers(cfg.Layers)
	observable := observables.MeanZ(encoder.NumQubits())
	evaluator, err := eval.New(backend, encoder, builder, observable)
	if err != nil {
		return err
	}
	evaluator.WithShots(cfg.Shots)
	if device, ok := deviceFor(cfg, encoder.NumQubits()); ok {
		fmt.Printf("Transpiling for %q device (%d qubits).\n", device.Name, device.NumQubits)
		evaluator.WithDevice(device)
	}

	loop := train.NewLoop(evaluator, optimizers.ByName(cfg.Optimizer), trainSet).
		WithBatchSize(cfg.BatchSize).
		WithMaxIterations(cfg.MaxIterations).
		WithTolerance(cfg.Tolerance).
		WithSeed(cfg.Seed)
	if !*flagQuiet {
		bar := progressbar.NewOptions(cfg.MaxIterations,
			progressbar.OptionSetDescription("training"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false))
		loop.OnStep(func(s train.State) {
			_ = bar.Add(1)
			bar.Describe(fmt.Sprintf("loss=%.4f best=%.4f", s.Loss, s.BestLoss))
		})
	}

	start := time.Now()
	state, err := loop.Run(context.Background())
	if !*flagQuiet {
		fmt.Println()
	}
	if err != nil {
		// Abnormal termination still has a best-seen θ and partial history
		// worth persisting for diagnosis.
		klog.Errorf("Training aborted after %d iterations: %v", state.Iteration, err)
	}
	fmt.Printf("Finished: reason=%s iterations=%s best_loss=%.6f elapsed=%s\n",
		state.Reason, humanize.Comma(int64(state.Iteration)), state.BestLoss,
		time.Since(start).Round(time.Millisecond))

	artifact := model{
		GridDim:   cfg.GridDim,
		Layers:    cfg.Layers,
		Theta:     state.BestTheta,
		Loss:      state.BestLoss,
		Reason:    string(state.Reason),
		History:   state.History,
		TrainedAt: time.Now().UTC(),
	}
	if state.Reason != train.ReasonAborted && testSet.Len() > 0 {
		testLoss, evalErr := loop.Evaluate(context.Background(), testSet, state.BestTheta)
		if evalErr != nil {
			return evalErr
		}
		artifact.TestLoss = &testLoss
		fmt.Printf("Held-out loss over %s samples: %.6f\n",
			humanize.Comma(int64(testSet.Len())), testLoss)
	}

	contents := must.M1(json.MarshalIndent(artifact, "", "  "))
	if writeErr := os.WriteFile(cfg.Output, contents, 0644); writeErr != nil {
		return errors.Wrapf(writeErr, "writing %s", cfg.Output)
	}
	fmt.Printf("Model written to %s.\n", cfg.Output)
	return err
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	cfg := buildConfig()
	err := exceptions.TryCatch[error](func() {
		if runErr := run(cfg); runErr != nil {
			panic(runErr)
		}
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}
