package source

import (
	"errors"
	"fmt"
)

var (
	// ErrMaskNotFound is returned when no segmentation mask exists for a frame.
	ErrMaskNotFound = errors.New("mask not found")
	// ErrFrameNotFound is returned when no frame image exists for a frame.
	ErrFrameNotFound = errors.New("frame not found")
)

// MissingArtifactError describes a mask or frame that was requested but is absent.
// It unwraps to ErrMaskNotFound or ErrFrameNotFound.
type MissingArtifactError struct {
	Kind string
	T    int
	Path string
	Err  error
}

func (e *MissingArtifactError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s for frame %d: %v", e.Kind, e.T, e.Err)
	}
	return fmt.Sprintf("%s for frame %d (%s): %v", e.Kind, e.T, e.Path, e.Err)
}

func (e *MissingArtifactError) Unwrap() error {
	return e.Err
}

func maskNotFound(t int, path string) error {
	return &MissingArtifactError{Kind: "mask", T: t, Path: path, Err: ErrMaskNotFound}
}

func frameNotFound(t int, path string) error {
	return &MissingArtifactError{Kind: "frame", T: t, Path: path, Err: ErrFrameNotFound}
}
