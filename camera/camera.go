// Package camera defines where detectors get their color frames and camera model from.
package camera

import (
	"context"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"go.viam.com/fiducialpose/rimage/transform"
)

// FrameSource yields color frames from a calibrated camera. The release func returned by Next
// must be called once the caller is done with the image.
type FrameSource interface {
	Next(ctx context.Context) (image.Image, func(), error)
	Intrinsics() *transform.PinholeCameraModel
	Close(ctx context.Context) error
}

// StaticSource always returns the same image.
type StaticSource struct {
	Img   image.Image
	Model *transform.PinholeCameraModel
}

// Next returns the stored image.
func (ss *StaticSource) Next(ctx context.Context) (image.Image, func(), error) {
	if ss.Img == nil {
		return nil, nil, errors.New("static source has no image")
	}
	return ss.Img, func() {}, nil
}

// Intrinsics returns the stored camera model.
func (ss *StaticSource) Intrinsics() *transform.PinholeCameraModel {
	return ss.Model
}

// Close does nothing.
func (ss *StaticSource) Close(ctx context.Context) error {
	return nil
}

// ImageFileSource reads frames from image files on disk, cycling through them in order. Files are
// decoded on every call so a file rewritten between polls is picked up.
type ImageFileSource struct {
	paths []string
	model *transform.PinholeCameraModel

	mu   sync.Mutex
	next int
}

// NewImageFileSource returns a source over one or more image files.
func NewImageFileSource(model *transform.PinholeCameraModel, paths ...string) (*ImageFileSource, error) {
	if len(paths) == 0 {
		return nil, errors.New("image file source needs at least one path")
	}
	return &ImageFileSource{paths: append([]string(nil), paths...), model: model}, nil
}

// Next decodes the next file in the cycle.
func (fs *ImageFileSource) Next(ctx context.Context) (image.Image, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	fs.mu.Lock()
	path := fs.paths[fs.next]
	fs.next = (fs.next + 1) % len(fs.paths)
	fs.mu.Unlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot read frame %q", path)
	}
	return img, func() {}, nil
}

// Intrinsics returns the camera model the files were captured with.
func (fs *ImageFileSource) Intrinsics() *transform.PinholeCameraModel {
	return fs.model
}

// Close does nothing.
func (fs *ImageFileSource) Close(ctx context.Context) error {
	return nil
}
