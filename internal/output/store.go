// Package output persists one output unit per cell, either as files on disk
// or as objects in an S3-compatible bucket.
package output

import (
	"bytes"
	"context"
	"fmt"

	"github.com/MeKo-Tech/celltraj/internal/features"
)

// Store persists per-cell output units. Exists doubles as the skip check of
// a resumed run.
type Store interface {
	Name(cell int) string
	Exists(ctx context.Context, cell int) (bool, error)
	Write(ctx context.Context, cell int, records []features.Record) error
}

// UnitName returns the output unit name of a cell: "ii=<cell><ext>".
func UnitName(cell int, f features.Format) string {
	return fmt.Sprintf("ii=%d%s", cell, f.Ext())
}

func encode(enc features.Encoding, records []features.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := enc.Encode(&buf, records); err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return buf.Bytes(), nil
}
