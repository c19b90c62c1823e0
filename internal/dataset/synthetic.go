package dataset

import (
	"fmt"
	"math/rand"
)

// SyntheticConfig controls Synthetic.
type SyntheticConfig struct {
	Examples   int
	NumClasses int
	Planes     int
	ImageSize  int
	Noise      float32 // standard deviation of per-pixel noise
	Seed       int64
}

// Synthetic generates a separable classification set: each class has a
// random prototype image in [0, 1] and every example is its class prototype
// plus Gaussian noise. Labels cycle through the classes.
func Synthetic(cfg SyntheticConfig) (*Dataset, error) {
	if cfg.Examples <= 0 {
		return nil, fmt.Errorf("%w: synthetic set needs examples, got %d", ErrInvalid, cfg.Examples)
	}
	d := &Dataset{Planes: cfg.Planes, ImageSize: cfg.ImageSize, NumClasses: cfg.NumClasses}
	if d.Planes <= 0 || d.ImageSize <= 0 || d.NumClasses <= 0 {
		return nil, fmt.Errorf("%w: synthetic shape %dx%dx%d with %d classes", ErrInvalid, cfg.Planes, cfg.ImageSize, cfg.ImageSize, cfg.NumClasses)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	cube := d.CubeSize()
	prototypes := make([]float32, cfg.NumClasses*cube)
	for i := range prototypes {
		prototypes[i] = rng.Float32()
	}

	d.Images = make([]float32, cfg.Examples*cube)
	d.Labels = make([]int, cfg.Examples)
	for i := range d.Labels {
		label := i % cfg.NumClasses
		d.Labels[i] = label
		proto := prototypes[label*cube : (label+1)*cube]
		img := d.Images[i*cube : (i+1)*cube]
		for j, p := range proto {
			img[j] = p + cfg.Noise*float32(rng.NormFloat64())
		}
	}
	return d, nil
}
