package inject

import (
	"context"
	"image"

	"go.viam.com/fiducialpose/camera"
	"go.viam.com/fiducialpose/rimage/transform"
)

// FrameSource is an injected frame source.
type FrameSource struct {
	camera.FrameSource
	NextFunc       func(ctx context.Context) (image.Image, func(), error)
	IntrinsicsFunc func() *transform.PinholeCameraModel
	CloseFunc      func(ctx context.Context) error
}

// Next calls the injected Next or the real version.
func (fs *FrameSource) Next(ctx context.Context) (image.Image, func(), error) {
	if fs.NextFunc == nil {
		return fs.FrameSource.Next(ctx)
	}
	return fs.NextFunc(ctx)
}

// Intrinsics calls the injected Intrinsics or the real version.
func (fs *FrameSource) Intrinsics() *transform.PinholeCameraModel {
	if fs.IntrinsicsFunc == nil {
		return fs.FrameSource.Intrinsics()
	}
	return fs.IntrinsicsFunc()
}

// Close calls the injected Close or the real version.
func (fs *FrameSource) Close(ctx context.Context) error {
	if fs.CloseFunc == nil {
		if fs.FrameSource == nil {
			return nil
		}
		return fs.FrameSource.Close(ctx)
	}
	return fs.CloseFunc(ctx)
}
