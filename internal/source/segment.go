package source

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
)

// Segmenter is an external segmentation model: one frame in, one label mask out.
type Segmenter interface {
	Segment(ctx context.Context, frame image.Image) (*Mask, error)
}

// ComputeMasks segments frames [0, count) and writes each mask to dir as a
// 16-bit PNG. Frames that already have a mask on disk are skipped, so an
// interrupted run can be resumed by calling it again. It returns the number
// of masks written.
func ComputeMasks(ctx context.Context, seg Segmenter, frames FrameProvider, dir string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	count, err := frames.Count()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("create mask directory: %w", err)
	}

	masks := DirMasks{Dir: dir}
	written := 0
	for t := range count {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if _, ok := masks.Path(t); ok {
			logger.Debug("mask exists, skipping", "t", t)
			continue
		}
		frame, err := frames.Frame(t)
		if err != nil {
			return written, err
		}
		mask, err := seg.Segment(ctx, frame)
		if err != nil {
			return written, fmt.Errorf("segment frame %d: %w", t, err)
		}
		if err := writeMask(filepath.Join(dir, FileName(t, ".png")), mask); err != nil {
			return written, err
		}
		written++
	}
	logger.Info("segmentation complete", "frames", count, "written", written)
	return written, nil
}

func writeMask(path string, mask *Mask) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // G304: path built from the configured mask directory
	if err != nil {
		return fmt.Errorf("create mask file: %w", err)
	}
	if err := EncodeMask(f, mask); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode mask %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
