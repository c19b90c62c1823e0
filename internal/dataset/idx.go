package dataset

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// IDX magic numbers.
const (
	idxImagesMagic = 0x00000803
	idxLabelsMagic = 0x00000801
	maxIDXItems    = 1 << 24
)

// ReadIDXImages reads an IDX image file.
//
// Layout (big endian):
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes
func ReadIDXImages(r io.Reader) (pixels []byte, count, rows, cols int, err error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	if header[0] != idxImagesMagic {
		return nil, 0, 0, 0, fmt.Errorf("%w: image magic %d, want %d", ErrInvalid, header[0], idxImagesMagic)
	}
	count, rows, cols = int(header[1]), int(header[2]), int(header[3])
	if count > maxIDXItems || rows*cols > 1<<16 {
		return nil, 0, 0, 0, fmt.Errorf("%w: %d images of %dx%d", ErrInvalid, count, rows, cols)
	}

	pixels = make([]byte, count*rows*cols)
	if _, err := io.ReadFull(r, pixels); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("failed to read pixels: %w", err)
	}
	return pixels, count, rows, cols, nil
}

// ReadIDXLabels reads an IDX label file.
//
// Layout (big endian):
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes
func ReadIDXLabels(r io.Reader) ([]byte, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read label header: %w", err)
	}
	if header[0] != idxLabelsMagic {
		return nil, fmt.Errorf("%w: label magic %d, want %d", ErrInvalid, header[0], idxLabelsMagic)
	}
	if header[1] > maxIDXItems {
		return nil, fmt.Errorf("%w: %d labels", ErrInvalid, header[1])
	}

	labels := make([]byte, header[1])
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}

// openIDX opens path, or path+".gz" when only the compressed file exists.
func openIDX(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	gz, gzErr := os.Open(path + ".gz")
	if gzErr != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bufio.NewReader(gz))
	if err != nil {
		_ = gz.Close()
		return nil, fmt.Errorf("%s.gz: %w", path, err)
	}
	return &gzipFile{Reader: zr, file: gz}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// LoadMNIST loads the MNIST training or test set from dir, scaling pixels to
// [0, 1]. maxSamples > 0 truncates the set.
//
// Expected files in dir (optionally gzipped with a .gz suffix):
//   - train-images-idx3-ubyte, train-labels-idx1-ubyte
//   - t10k-images-idx3-ubyte, t10k-labels-idx1-ubyte
func LoadMNIST(dir string, train bool, maxSamples int) (*Dataset, error) {
	prefix := "t10k"
	if train {
		prefix = "train"
	}
	return LoadIDX(
		filepath.Join(dir, prefix+"-images-idx3-ubyte"),
		filepath.Join(dir, prefix+"-labels-idx1-ubyte"),
		10, maxSamples,
	)
}

// LoadIDX loads a single-plane image set from an IDX image and label file pair.
func LoadIDX(imagePath, labelPath string, numClasses, maxSamples int) (*Dataset, error) {
	imgFile, err := openIDX(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	defer imgFile.Close()
	pixels, count, rows, cols, err := ReadIDXImages(bufio.NewReader(imgFile))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", imagePath, err)
	}
	if rows != cols {
		return nil, fmt.Errorf("%w: %s: images are %dx%d, need square", ErrInvalid, imagePath, rows, cols)
	}

	lblFile, err := openIDX(labelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	defer lblFile.Close()
	raw, err := ReadIDXLabels(bufio.NewReader(lblFile))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", labelPath, err)
	}
	if len(raw) != count {
		return nil, fmt.Errorf("%w: image count (%d) != label count (%d)", ErrInvalid, count, len(raw))
	}

	n := count
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}
	cube := rows * cols
	d := &Dataset{
		Planes:     1,
		ImageSize:  rows,
		NumClasses: numClasses,
		Images:     make([]float32, n*cube),
		Labels:     make([]int, n),
	}
	for i, p := range pixels[:n*cube] {
		d.Images[i] = float32(p) / 255
	}
	for i, l := range raw[:n] {
		d.Labels[i] = int(l)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
