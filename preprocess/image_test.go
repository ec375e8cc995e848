package preprocess_test

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"

	"github.com/sugarme/faceir/preprocess"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "red.png")
	require.NoError(t, imaging.Save(solid(150, 120, color.NRGBA{R: 255, A: 255}), fname))

	x, err := preprocess.Load(fname, preprocess.Options{Resolution: 112})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 112, 112}, x.MustSize())

	vals := x.MustTotype(gotch.Double, false).Float64Values()
	plane := 112 * 112
	assert.InDelta(t, 1.0, vals[0], 1e-2)        // R
	assert.InDelta(t, -1.0, vals[plane], 1e-2)   // G
	assert.InDelta(t, -1.0, vals[2*plane], 1e-2) // B

	bgr, err := preprocess.Load(fname, preprocess.Options{Resolution: 112, BGR: true})
	require.NoError(t, err)
	vals = bgr.MustTotype(gotch.Double, false).Float64Values()
	assert.InDelta(t, -1.0, vals[0], 1e-2)
	assert.InDelta(t, 1.0, vals[2*plane], 1e-2)
}

func TestReadTiff(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "face.tif")
	f, err := os.Create(fname)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, solid(10, 10, color.NRGBA{G: 255, A: 255}), nil))
	require.NoError(t, f.Close())

	img, err := preprocess.Read(fname)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestReadUnsupported(t *testing.T) {
	_, err := preprocess.Read("face.bmp")
	assert.Error(t, err)
}

func TestSquare(t *testing.T) {
	img := preprocess.Square(solid(300, 200, color.NRGBA{A: 255}), 224)
	assert.Equal(t, image.Rect(0, 0, 224, 224), img.Bounds())
}

func TestLoadBatch(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for i, c := range []color.NRGBA{{R: 255, A: 255}, {B: 255, A: 255}, {G: 255, A: 255}} {
		fname := filepath.Join(dir, string(rune('a'+i))+".png")
		require.NoError(t, imaging.Save(solid(112, 112, c), fname))
		files = append(files, fname)
	}

	batch, err := preprocess.LoadBatch(context.Background(), files, preprocess.Options{Resolution: 112, Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 3, 112, 112}, batch.MustSize())

	// order is kept: the second image is blue
	vals := batch.MustTotype(gotch.Double, false).Float64Values()
	img := 3 * 112 * 112
	plane := 112 * 112
	assert.InDelta(t, 1.0, vals[img+2*plane], 1e-6)

	_, err = preprocess.LoadBatch(context.Background(), append(files, filepath.Join(dir, "missing.png")), preprocess.Options{Resolution: 112})
	assert.Error(t, err)

	_, err = preprocess.LoadBatch(context.Background(), nil, preprocess.Options{Resolution: 112})
	assert.Error(t, err)
}
