// Package dataset holds labelled image sets in the flat layout networks
// consume: images packed [N, planes, size, size] in one slice, one int label
// per image.
package dataset

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// ErrInvalid reports a malformed or inconsistent dataset.
var ErrInvalid = errors.New("invalid dataset")

// Dataset is a set of labelled images.
type Dataset struct {
	Planes     int
	ImageSize  int
	NumClasses int
	Images     []float32 // [Len, Planes, ImageSize, ImageSize]
	Labels     []int
}

// Len returns the number of examples.
func (d *Dataset) Len() int { return len(d.Labels) }

// CubeSize returns the number of values per image.
func (d *Dataset) CubeSize() int { return d.Planes * d.ImageSize * d.ImageSize }

// Validate checks that images and labels agree.
func (d *Dataset) Validate() error {
	if d.Planes <= 0 || d.ImageSize <= 0 || d.NumClasses <= 0 {
		return fmt.Errorf("%w: shape %dx%dx%d with %d classes", ErrInvalid, d.Planes, d.ImageSize, d.ImageSize, d.NumClasses)
	}
	if len(d.Images) != d.Len()*d.CubeSize() {
		return fmt.Errorf("%w: %d image values for %d examples of %d", ErrInvalid, len(d.Images), d.Len(), d.CubeSize())
	}
	for i, l := range d.Labels {
		if l < 0 || l >= d.NumClasses {
			return fmt.Errorf("%w: label %d of example %d outside [0, %d)", ErrInvalid, l, i, d.NumClasses)
		}
	}
	return nil
}

// Batch returns examples [start, start+n) without copying.
func (d *Dataset) Batch(start, n int) ([]float32, []int) {
	cube := d.CubeSize()
	return d.Images[start*cube : (start+n)*cube], d.Labels[start : start+n]
}

// NumBatches returns how many whole batches of size batchSize fit.
func (d *Dataset) NumBatches(batchSize int) int {
	if batchSize <= 0 {
		return 0
	}
	return d.Len() / batchSize
}

// Shuffle permutes the examples in place.
func (d *Dataset) Shuffle(rng *rand.Rand) {
	cube := d.CubeSize()
	tmp := make([]float32, cube)
	rng.Shuffle(d.Len(), func(i, j int) {
		d.Labels[i], d.Labels[j] = d.Labels[j], d.Labels[i]
		a := d.Images[i*cube : (i+1)*cube]
		b := d.Images[j*cube : (j+1)*cube]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	})
}

// Split returns the first n examples and the rest as two datasets sharing
// d's storage.
func (d *Dataset) Split(n int) (*Dataset, *Dataset) {
	n = min(max(n, 0), d.Len())
	cube := d.CubeSize()
	head := *d
	head.Images, head.Labels = d.Images[:n*cube], d.Labels[:n]
	tail := *d
	tail.Images, tail.Labels = d.Images[n*cube:], d.Labels[n:]
	return &head, &tail
}

// Stats summarizes image values.
type Stats struct {
	Mean   float64
	StdDev float64
	Min    float32
	Max    float32
}

// Stats computes the mean, standard deviation and range of all image values.
func (d *Dataset) Stats() Stats {
	if len(d.Images) == 0 {
		return Stats{}
	}
	values := make([]float64, len(d.Images))
	s := Stats{Min: d.Images[0], Max: d.Images[0]}
	for i, v := range d.Images {
		values[i] = float64(v)
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	return s
}

// Normalization returns the translate and scale that map values with these
// statistics to zero mean and unit deviation. A zero deviation gives scale 1.
func (s Stats) Normalization() (translate, scale float32) {
	scale = 1
	if s.StdDev > 0 {
		scale = float32(1 / s.StdDev)
	}
	return float32(-s.Mean), scale
}
