package serialization

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Write encodes cp to w.
func Write(w io.Writer, cp *Checkpoint) error {
	payload := marshalCheckpoint(cp)
	sum := sha256.Sum256(payload)

	header := make([]byte, 0, FixedHeaderSize)
	header = append(header, MagicBytes...)
	header = binary.LittleEndian.AppendUint32(header, FormatVersion)
	header = append(header, sum[:]...)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// Read decodes a checkpoint from r, verifying magic, version and checksum.
func Read(r io.Reader) (*Checkpoint, error) {
	header := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(header[:len(MagicBytes)]) != MagicBytes {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, header[:len(MagicBytes)])
	}
	version := binary.LittleEndian.Uint32(header[len(MagicBytes):])
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	var stored [ChecksumSize]byte
	copy(stored[:], header[len(MagicBytes)+4:])

	payload, err := io.ReadAll(io.LimitReader(r, MaxPayloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrMalformed, MaxPayloadSize)
	}
	if sha256.Sum256(payload) != stored {
		return nil, ErrChecksumMismatch
	}
	return unmarshalCheckpoint(payload)
}

// WriteFile writes cp to path, replacing any existing file.
func WriteFile(path string, cp *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, cp); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}

// ReadFile reads a checkpoint from path.
func ReadFile(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}
