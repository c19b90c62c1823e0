package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/born-ml/layernet/internal/backend/cpu"
	"github.com/born-ml/layernet/internal/backend/webgpu"
	"github.com/born-ml/layernet/internal/dataset"
	"github.com/born-ml/layernet/internal/instrument"
	"github.com/born-ml/layernet/internal/layer"
	"github.com/born-ml/layernet/internal/net"
	"github.com/born-ml/layernet/internal/netdef"
	"github.com/born-ml/layernet/internal/optim"
	"github.com/born-ml/layernet/internal/serialization"
	"github.com/born-ml/layernet/internal/tensor"
	"github.com/born-ml/layernet/internal/train"
)

type trainFlags struct {
	netdef     string
	dataDir    string
	synthetic  bool
	samples    int
	testSplit  float64
	epochs     int
	batchSize  int
	lr         float64
	momentum   float64
	decay      float64
	trainer    string
	backend    string
	save       string
	load       string
	seed       int64
	timing     bool
	dumpWeight bool
	verbose    bool
}

func parseTrainFlags(args []string, stderr io.Writer) (*trainFlags, error) {
	f := &trainFlags{}
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.netdef, "netdef", "", "YAML network description (default: built-in CNN)")
	fs.StringVar(&f.dataDir, "data", "./data", "Directory containing MNIST IDX files")
	fs.BoolVar(&f.synthetic, "synthetic", false, "Use a generated dataset instead of MNIST")
	fs.IntVar(&f.samples, "samples", 0, "Max samples to load (0 = all)")
	fs.Float64Var(&f.testSplit, "test", 0.1, "Fraction of samples held out for testing")
	fs.IntVar(&f.epochs, "epochs", 10, "Number of training epochs")
	fs.IntVar(&f.batchSize, "batch", 128, "Batch size")
	fs.Float64Var(&f.lr, "lr", 0.002, "Learning rate")
	fs.Float64Var(&f.momentum, "momentum", 0.9, "SGD momentum")
	fs.Float64Var(&f.decay, "decay", 0, "SGD weight decay")
	fs.StringVar(&f.trainer, "trainer", "sgd", "Trainer: sgd or adam")
	fs.StringVar(&f.backend, "backend", "cpu", "Compute backend: cpu, webgpu or auto")
	fs.StringVar(&f.save, "save", "", "Write weights to this file after every epoch")
	fs.StringVar(&f.load, "load", "", "Read initial weights from this file")
	fs.Int64Var(&f.seed, "seed", 1, "Shuffle and synthetic data seed")
	fs.BoolVar(&f.timing, "timing", false, "Print per-layer timing after training")
	fs.BoolVar(&f.dumpWeight, "dumpweights", false, "Print final weights as Go code")
	fs.BoolVar(&f.verbose, "v", false, "Debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.testSplit < 0 || f.testSplit >= 1 {
		return nil, fmt.Errorf("-test must be in [0, 1), got %g", f.testSplit)
	}
	return f, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func openBackend(name string, logger *slog.Logger) (tensor.Backend, error) {
	switch name {
	case "cpu":
		return cpu.New(), nil
	case "webgpu":
		gpu, err := webgpu.New()
		if err != nil {
			return nil, err
		}
		return gpu, nil
	case "auto":
		gpu, err := webgpu.New()
		if err == nil {
			return gpu, nil
		}
		logger.Info("webgpu unavailable, using cpu", "err", err)
		return cpu.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

func loadData(f *trainFlags) (*dataset.Dataset, error) {
	if f.synthetic {
		examples := f.samples
		if examples == 0 {
			examples = 2000
		}
		return dataset.Synthetic(dataset.SyntheticConfig{
			Examples: examples, NumClasses: 10, Planes: 1, ImageSize: 28, Noise: 0.3, Seed: f.seed,
		})
	}
	return dataset.LoadMNIST(f.dataDir, true, f.samples)
}

// defaultConfigs is an 8c5z-relu-mp2-16c5z-relu-mp3-150n-tanh CNN with
// input normalization from the training set.
func defaultConfigs(d *dataset.Dataset) []layer.Config {
	translate, scale := d.Stats().Normalization()
	return []layer.Config{
		&layer.InputConfig{NumPlanes: d.Planes, ImageSize: d.ImageSize},
		&layer.NormalizationConfig{Translate: translate, Scale: scale},
		&layer.ConvolutionalConfig{NumFilters: 8, FilterSize: 5, PadZeros: true, Activation: tensor.ReLU, Biased: true},
		&layer.PoolingConfig{PoolingSize: 2},
		&layer.ConvolutionalConfig{NumFilters: 16, FilterSize: 5, PadZeros: true, Activation: tensor.ReLU, Biased: true},
		&layer.PoolingConfig{PoolingSize: 3},
		&layer.FullyConnectedConfig{NumPlanes: 150, ImageSize: 1, Activation: tensor.Tanh, Biased: true},
		&layer.FullyConnectedConfig{NumPlanes: d.NumClasses, ImageSize: 1, Biased: true},
		&layer.SoftMaxConfig{},
	}
}

func buildNetwork(f *trainFlags, d *dataset.Dataset, backend tensor.Backend, logger *slog.Logger) (*net.Network, error) {
	var configs []layer.Config
	if f.netdef != "" {
		def, err := netdef.Load(f.netdef)
		if err != nil {
			return nil, err
		}
		if configs, err = def.Configs(); err != nil {
			return nil, err
		}
	} else {
		configs = defaultConfigs(d)
	}

	n := net.New(backend)
	n.SetLogger(logger)
	for _, cfg := range configs {
		if err := n.AddLayer(cfg); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func newTrainer(f *trainFlags) (optim.Trainer, error) {
	switch f.trainer {
	case "sgd":
		return &optim.SGD{LearningRate: float32(f.lr), Momentum: float32(f.momentum), WeightDecay: float32(f.decay)}, nil
	case "adam":
		return &optim.Adam{LearningRate: float32(f.lr)}, nil
	default:
		return nil, fmt.Errorf("unknown trainer %q", f.trainer)
	}
}

func runTrain(args []string, stdout, stderr io.Writer) error {
	f, err := parseTrainFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	logger := newLogger(stderr, f.verbose)

	backend, err := openBackend(f.backend, logger)
	if err != nil {
		return err
	}
	defer backend.Release()

	data, err := loadData(f)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w (download MNIST into -data or run with -synthetic)", err)
		}
		return err
	}
	testSet, trainSet := data.Split(int(float64(data.Len()) * f.testSplit))
	if testSet.Len() == 0 {
		testSet = nil
	}
	logger.Info("data loaded", "train", trainSet.Len(), "test", data.Len()-trainSet.Len(),
		"shape", fmt.Sprintf("%dx%dx%d", data.Planes, data.ImageSize, data.ImageSize))

	n, err := buildNetwork(f, trainSet, backend, logger)
	if err != nil {
		return err
	}
	trainer, err := newTrainer(f)
	if err != nil {
		return err
	}
	n.SetTrainer(trainer)

	startEpoch := 0
	if f.load != "" {
		cp, err := serialization.LoadFile(f.load, n)
		if err != nil {
			return err
		}
		startEpoch = cp.Epoch
		logger.Info("weights loaded", "path", f.load, "epoch", cp.Epoch)
	}
	fmt.Fprintf(stdout, "backend: %s\n%s", backend.Name(), n)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	timer := instrument.NewTimer()
	ctx = instrument.WithTimer(ctx, timer)

	opts := train.Options{
		Epochs:     f.epochs,
		BatchSize:  f.batchSize,
		Shuffle:    true,
		Seed:       f.seed,
		StartEpoch: startEpoch,
		Logger:     logger,
		OnEpoch: func(tr, te train.Result) error {
			fmt.Fprintf(stdout, "epoch %d: loss %.4f train accuracy %.2f%%", tr.Epoch+1, tr.MeanLoss(), 100*tr.Accuracy())
			if te.Examples > 0 {
				fmt.Fprintf(stdout, " test accuracy %d/%d %.2f%%", te.NumRight, te.Examples, 100*te.Accuracy())
			}
			fmt.Fprintln(stdout)
			if f.save == "" {
				return nil
			}
			return serialization.SaveFile(f.save, n, tr.Epoch+1)
		},
	}
	if _, err := train.Run(ctx, n, trainSet, testSet, opts); err != nil {
		return err
	}

	if f.timing {
		timer.Report(stdout)
	}
	if f.dumpWeight {
		if err := n.WriteWeightsAsCode(stdout); err != nil {
			return err
		}
		return n.WriteBiasAsCode(stdout)
	}
	return nil
}

func runDescribe(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("netdef", "", "YAML network description")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *path == "" {
		return errors.New("describe: -netdef is required")
	}
	def, err := netdef.Load(*path)
	if err != nil {
		return err
	}
	n, err := def.Build(cpu.New())
	if err != nil {
		return err
	}
	if def.Name != "" {
		fmt.Fprintf(stdout, "%s\n", def.Name)
	}
	fmt.Fprint(stdout, n)
	params := 0
	for i := 0; i < n.NumLayers(); i++ {
		if w, ok := n.Layer(i).(layer.Weighted); ok {
			params += len(w.Weights()) + len(w.Bias())
		}
	}
	fmt.Fprintf(stdout, "parameters: %d\n", params)
	return nil
}
