package source

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MeKo-Tech/celltraj/internal/utils"
)

// MaskProvider returns the segmentation mask of a frame.
type MaskProvider interface {
	Mask(t int) (*Mask, error)
}

// FrameProvider returns frame images and the length of the frame sequence.
type FrameProvider interface {
	Frame(t int) (image.Image, error)
	Count() (int, error)
}

// FileName is the naming convention shared by frames and masks: "t=<t><ext>".
func FileName(t int, ext string) string {
	return fmt.Sprintf("t=%d%s", t, ext)
}

// parseFrameIndex extracts t from a "t=<t>.<ext>" file name.
func parseFrameIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, "t=") || !utils.IsSupportedImage(name) {
		return 0, false
	}
	var t int
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if _, err := fmt.Sscanf(stem, "t=%d", &t); err != nil || FileName(t, "") != stem {
		return 0, false
	}
	return t, true
}

// DirMasks reads label masks stored as t=<t>.png or t=<t>.tif in Dir.
type DirMasks struct {
	Dir string
}

var maskExtensions = []string{".png", ".tif", ".tiff"}

// Path returns the first existing mask file for t, or the default PNG path.
func (d DirMasks) Path(t int) (string, bool) {
	for _, ext := range maskExtensions {
		p := filepath.Join(d.Dir, FileName(t, ext))
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return filepath.Join(d.Dir, FileName(t, ".png")), false
}

// Mask loads and decodes the mask of frame t.
func (d DirMasks) Mask(t int) (*Mask, error) {
	path, ok := d.Path(t)
	if !ok {
		return nil, maskNotFound(t, path)
	}
	img, _, err := utils.LoadImage(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, maskNotFound(t, path)
		}
		return nil, fmt.Errorf("load mask %s: %w", path, err)
	}
	return MaskFromImage(img), nil
}

// DirFrames reads frame images stored as t=<t>.<ext> in Dir.
type DirFrames struct {
	Dir string
}

// Path returns the first existing frame file for t.
func (d DirFrames) Path(t int) (string, bool) {
	for _, ext := range utils.SupportedImageExtensions {
		p := filepath.Join(d.Dir, FileName(t, ext))
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return filepath.Join(d.Dir, FileName(t, ".png")), false
}

// Frame loads and decodes frame t.
func (d DirFrames) Frame(t int) (image.Image, error) {
	path, ok := d.Path(t)
	if !ok {
		return nil, frameNotFound(t, path)
	}
	img, _, err := utils.LoadImage(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, frameNotFound(t, path)
		}
		return nil, fmt.Errorf("load frame %s: %w", path, err)
	}
	return img, nil
}

// Count returns the number of distinct frame indices present in Dir.
func (d DirFrames) Count() (int, error) {
	idx, err := d.Indices()
	if err != nil {
		return 0, err
	}
	return len(idx), nil
}

// Indices returns the frame indices present in Dir, ascending.
func (d DirFrames) Indices() ([]int, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("read frames directory %s: %w", d.Dir, err)
	}
	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if t, ok := parseFrameIndex(e.Name()); ok {
			seen[t] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Ints(out)
	return out, nil
}

// MemoryMasks is an in-memory MaskProvider keyed by frame index.
type MemoryMasks map[int]*Mask

// Mask returns the stored mask or ErrMaskNotFound.
func (m MemoryMasks) Mask(t int) (*Mask, error) {
	mask, ok := m[t]
	if !ok || mask == nil {
		return nil, maskNotFound(t, "")
	}
	return mask, nil
}

// MemoryFrames is an in-memory FrameProvider keyed by frame index.
type MemoryFrames map[int]image.Image

// Frame returns the stored image or ErrFrameNotFound.
func (m MemoryFrames) Frame(t int) (image.Image, error) {
	img, ok := m[t]
	if !ok || img == nil {
		return nil, frameNotFound(t, "")
	}
	return img, nil
}

// Count returns the number of stored frames.
func (m MemoryFrames) Count() (int, error) {
	return len(m), nil
}
