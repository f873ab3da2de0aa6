// Package storage persists slot scans: as the fixed-size blob the hub
// reads back on its next program, and as a scan history in SQLite.
package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"time"
)

// BlobSize is the size of an encoded scan: six little-endian uint16.
const BlobSize = 2 * slotCount

const slotCount = 6

var (
	// ErrBlobSize is returned when a blob or a scan has the wrong length.
	ErrBlobSize = errors.New("scan blob size")

	// ErrBlobRange is returned for an intensity that does not fit in 16 bits.
	ErrBlobRange = errors.New("intensity out of blob range")
)

// Record is one stored scan.
type Record struct {
	ID          string
	At          time.Time
	Intensities []float64
	// Window is the first qualifying grab window, or -1 when the scan could
	// not be resolved.
	Window int
}

// Sink receives every finished scan.
type Sink interface {
	Save(ctx context.Context, rec Record) error
}

// EncodeHubBlob packs six intensities, rounded to whole units.
func EncodeHubBlob(intensities []float64) ([]byte, error) {
	if len(intensities) != slotCount {
		return nil, fmt.Errorf("%w: need %d intensities, got %d", ErrBlobSize, slotCount, len(intensities))
	}
	buf := make([]byte, BlobSize)
	for i, v := range intensities {
		r := math.Round(v)
		if math.IsNaN(r) || r < 0 || r > math.MaxUint16 {
			return nil, fmt.Errorf("%w: slot %d is %v", ErrBlobRange, i, v)
		}
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(r))
	}
	return buf, nil
}

// DecodeHubBlob unpacks a blob written by EncodeHubBlob.
func DecodeHubBlob(blob []byte) ([]float64, error) {
	if len(blob) != BlobSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrBlobSize, BlobSize, len(blob))
	}
	out := make([]float64, slotCount)
	for i := range out {
		out[i] = float64(binary.LittleEndian.Uint16(blob[2*i:]))
	}
	return out, nil
}

// FileSink writes the latest scan blob to a file, replacing what was there.
type FileSink struct {
	Path string
}

func (s FileSink) Save(ctx context.Context, rec Record) error {
	blob, err := EncodeHubBlob(rec.Intensities)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path, blob, 0644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

// LoadBlob reads and decodes the blob at path.
func LoadBlob(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return DecodeHubBlob(data)
}
