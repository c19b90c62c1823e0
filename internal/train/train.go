// Package train drives a Network over a dataset: batches, epochs and
// evaluation.
//
// A batch step is forward, loss, backward from labels and a trainer update:
//
//	n.SetTrainer(&optim.SGD{LearningRate: 0.01, Momentum: 0.9})
//	results, err := train.Run(ctx, n, trainSet, testSet, train.Options{Epochs: 10, BatchSize: 128})
package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/born-ml/layernet/internal/dataset"
	"github.com/born-ml/layernet/internal/instrument"
	"github.com/born-ml/layernet/internal/net"
)

// ErrNoTrainer is returned when training a network without a trainer.
var ErrNoTrainer = errors.New("train: network has no trainer")

// Options configures Run and Epoch.
type Options struct {
	Epochs    int   // default 1
	BatchSize int   // default 128
	Shuffle   bool  // reshuffle the training set every epoch
	Seed      int64 // shuffle seed

	// StartEpoch numbers the first epoch, for resumed runs.
	StartEpoch int

	Logger *slog.Logger

	// OnEpoch is called after every epoch with its training and test results.
	// A non-nil error stops the run.
	OnEpoch func(train, test Result) error
}

func (o *Options) defaults() {
	if o.Epochs <= 0 {
		o.Epochs = 1
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 128
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Result accumulates loss and accuracy over a number of examples.
type Result struct {
	Epoch    int
	Loss     float64 // summed over examples
	NumRight int
	Examples int
	Duration time.Duration
}

// Accuracy returns NumRight / Examples, or 0 for an empty result.
func (r Result) Accuracy() float64 {
	if r.Examples == 0 {
		return 0
	}
	return float64(r.NumRight) / float64(r.Examples)
}

// MeanLoss returns the loss per example.
func (r Result) MeanLoss() float64 {
	if r.Examples == 0 {
		return 0
	}
	return r.Loss / float64(r.Examples)
}

func (r *Result) add(loss float32, numRight, examples int) {
	r.Loss += float64(loss)
	r.NumRight += numRight
	r.Examples += examples
}

// Batch runs one training step on a batch the size of the network's batch
// size and returns its summed loss and number of correct predictions.
func Batch(ctx context.Context, n *net.Network, images []float32, labels []int) (float32, int, error) {
	if n.Trainer() == nil {
		return 0, 0, ErrNoTrainer
	}
	if err := n.Forward(ctx, images); err != nil {
		return 0, 0, err
	}
	loss, err := n.CalcLossFromLabels(labels)
	if err != nil {
		return 0, 0, err
	}
	right, err := n.CalcNumRight(labels)
	if err != nil {
		return 0, 0, err
	}
	if err := n.BackwardFromLabels(ctx, labels); err != nil {
		return 0, 0, err
	}
	done := instrument.FromContext(ctx).Time("update weights")
	err = n.UpdateWeights()
	done()
	if err != nil {
		return 0, 0, err
	}
	return loss, right, nil
}

// Epoch trains n on every example of d once, in batches of batchSize. A final
// short batch runs at its own size; the network's batch size is restored
// before returning.
func Epoch(ctx context.Context, n *net.Network, d *dataset.Dataset, batchSize int) (Result, error) {
	n.SetTraining(true)
	return forBatches(ctx, n, d, batchSize, func(images []float32, labels []int) (float32, int, error) {
		return Batch(ctx, n, images, labels)
	})
}

// Evaluate runs n in inference mode over d and returns its loss and accuracy.
// The training mode is restored before returning.
func Evaluate(ctx context.Context, n *net.Network, d *dataset.Dataset, batchSize int) (Result, error) {
	wasTraining := n.Training()
	n.SetTraining(false)
	defer n.SetTraining(wasTraining)

	return forBatches(ctx, n, d, batchSize, func(images []float32, labels []int) (float32, int, error) {
		if err := n.Forward(ctx, images); err != nil {
			return 0, 0, err
		}
		loss, err := n.CalcLossFromLabels(labels)
		if err != nil {
			return 0, 0, err
		}
		right, err := n.CalcNumRight(labels)
		return loss, right, err
	})
}

func forBatches(ctx context.Context, n *net.Network, d *dataset.Dataset, batchSize int,
	step func(images []float32, labels []int) (float32, int, error)) (Result, error) {
	var res Result
	if batchSize < 1 {
		return res, fmt.Errorf("%w: batch size must be >= 1, got %d", net.ErrConfiguration, batchSize)
	}
	in, err := n.InputCubeSize()
	if err != nil {
		return res, err
	}
	if in != d.CubeSize() {
		return res, fmt.Errorf("%w: dataset images have %d values, network takes %d", net.ErrConfiguration, d.CubeSize(), in)
	}

	original := n.BatchSize()
	defer func() { _ = n.SetBatchSize(original) }()

	start := time.Now()
	for offset := 0; offset < d.Len(); offset += batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		size := min(batchSize, d.Len()-offset)
		if size != n.BatchSize() {
			if err := n.SetBatchSize(size); err != nil {
				return res, err
			}
		}
		images, labels := d.Batch(offset, size)
		loss, right, err := step(images, labels)
		if err != nil {
			return res, fmt.Errorf("batch at example %d: %w", offset, err)
		}
		res.add(loss, right, size)
	}
	res.Duration = time.Since(start)
	return res, nil
}

// Run trains n for opts.Epochs epochs on trainSet, evaluating on testSet
// after each epoch when testSet is non-nil. It returns the per-epoch
// training results.
func Run(ctx context.Context, n *net.Network, trainSet, testSet *dataset.Dataset, opts Options) ([]Result, error) {
	opts.defaults()
	if n.Trainer() == nil {
		return nil, ErrNoTrainer
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	var results []Result
	for e := 0; e < opts.Epochs; e++ {
		epoch := opts.StartEpoch + e
		if opts.Shuffle {
			trainSet.Shuffle(rng)
		}

		tr, err := Epoch(ctx, n, trainSet, opts.BatchSize)
		if err != nil {
			return results, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		tr.Epoch = epoch
		results = append(results, tr)

		var te Result
		if testSet != nil {
			te, err = Evaluate(ctx, n, testSet, opts.BatchSize)
			if err != nil {
				return results, fmt.Errorf("epoch %d test: %w", epoch, err)
			}
			te.Epoch = epoch
		}

		opts.Logger.Info("epoch",
			"epoch", epoch,
			"loss", tr.MeanLoss(),
			"train_acc", tr.Accuracy(),
			"test_loss", te.MeanLoss(),
			"test_acc", te.Accuracy(),
			"duration", tr.Duration,
		)
		if opts.OnEpoch != nil {
			if err := opts.OnEpoch(tr, te); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}
