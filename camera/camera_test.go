package camera

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"go.viam.com/test"

	"go.viam.com/fiducialpose/rimage/transform"
)

func writeImage(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := imaging.New(4, 3, c)
	test.That(t, imaging.Save(img, path), test.ShouldBeNil)
}

func TestStaticSource(t *testing.T) {
	model := &transform.PinholeCameraModel{PinholeCameraIntrinsics: &transform.PinholeCameraIntrinsics{Width: 4, Height: 3}}
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	ss := &StaticSource{Img: img, Model: model}

	got, release, err := ss.Next(context.Background())
	test.That(t, err, test.ShouldBeNil)
	defer release()
	test.That(t, got, test.ShouldEqual, img)
	test.That(t, ss.Intrinsics(), test.ShouldEqual, model)
	test.That(t, ss.Close(context.Background()), test.ShouldBeNil)

	_, _, err = (&StaticSource{}).Next(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestImageFileSource(t *testing.T) {
	_, err := NewImageFileSource(nil)
	test.That(t, err, test.ShouldNotBeNil)

	dir := t.TempDir()
	red := filepath.Join(dir, "red.png")
	blue := filepath.Join(dir, "blue.png")
	writeImage(t, red, color.NRGBA{R: 255, A: 255})
	writeImage(t, blue, color.NRGBA{B: 255, A: 255})

	fs, err := NewImageFileSource(nil, red, blue)
	test.That(t, err, test.ShouldBeNil)
	ctx := context.Background()

	for _, want := range []uint32{0xffff, 0, 0xffff} {
		img, release, err := fs.Next(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds().Dx(), test.ShouldEqual, 4)
		r, _, _, _ := img.At(1, 1).RGBA()
		test.That(t, r, test.ShouldEqual, want)
		release()
	}

	missing, err := NewImageFileSource(nil, filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldBeNil)
	_, _, err = missing.Next(ctx)
	test.That(t, err, test.ShouldNotBeNil)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = fs.Next(cancelled)
	test.That(t, err, test.ShouldEqual, context.Canceled)
}
