package tensor

import "fmt"

// Shape describes the output of a layer for a single example: a stack of
// square planes. Every layer in a network produces a Shape, and the next
// layer is validated against it when it is constructed.
type Shape struct {
	Planes    int
	ImageSize int
}

// CubeSize returns the number of values one example occupies.
func (s Shape) CubeSize() int {
	return s.Planes * s.ImageSize * s.ImageSize
}

// PlaneArea returns the number of values in a single plane.
func (s Shape) PlaneArea() int {
	return s.ImageSize * s.ImageSize
}

// Validate checks that both dimensions are positive.
func (s Shape) Validate() error {
	if s.Planes <= 0 {
		return fmt.Errorf("invalid plane count %d (must be > 0)", s.Planes)
	}
	if s.ImageSize <= 0 {
		return fmt.Errorf("invalid image size %d (must be > 0)", s.ImageSize)
	}
	return nil
}

// Equal reports whether two shapes describe the same layout.
func (s Shape) Equal(other Shape) bool {
	return s.Planes == other.Planes && s.ImageSize == other.ImageSize
}

// String formats the shape as planes x size x size.
func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Planes, s.ImageSize, s.ImageSize)
}
