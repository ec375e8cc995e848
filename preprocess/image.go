// Package preprocess turns face crops on disk into backbone input tensors.
package preprocess

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/sugarme/gotch/ts"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// Options controls how images are converted.
type Options struct {
	Resolution int64
	// BGR swaps channels to blue, green, red order, as expected by
	// checkpoints trained on OpenCV-decoded images.
	BGR bool
	// Workers bounds concurrent decoding in LoadBatch; <= 0 means unbounded.
	Workers int
}

// Read decodes a png, jpeg or tiff file, applying EXIF orientation to jpegs.
func Read(filename string) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg":
		img, err := imaging.Open(filename, imaging.AutoOrientation(true))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", filename)
		}
		return img, nil
	case ".tiff", ".tif":
		f, err := os.Open(filename)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", filename)
		}
		defer f.Close()
		img, err := tiff.Decode(f)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s", filename)
		}
		return img, nil
	default:
		return nil, errors.Errorf("unsupported image format: %v", ext)
	}
}

// Square crops the centered square of img and resamples it to size x size.
func Square(img image.Image, size int64) image.Image {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	cropped := imaging.CropCenter(img, side, side)
	if int64(side) == size {
		return cropped
	}
	return resize.Resize(uint(size), uint(size), cropped, resize.Bilinear)
}

// ToTensor converts img (already size x size) into a [3, size, size] float
// tensor scaled to [-1, 1].
func ToTensor(img image.Image, bgr bool) *ts.Tensor {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	h, w := b.Dy(), b.Dx()
	plane := h * w
	data := make([]float32, 3*plane)
	order := [3]int{0, 1, 2}
	if bgr {
		order = [3]int{2, 1, 0}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := rgba.PixOffset(x, y)
			px := rgba.Pix[off : off+3]
			for c, src := range order {
				data[c*plane+y*w+x] = (float32(px[src])/255.0 - 0.5) / 0.5
			}
		}
	}

	return ts.MustOfSlice(data).MustView([]int64{3, int64(h), int64(w)}, true)
}

// Load reads filename and returns its [3, R, R] input tensor.
func Load(filename string, opts Options) (*ts.Tensor, error) {
	img, err := Read(filename)
	if err != nil {
		return nil, err
	}
	return ToTensor(Square(img, opts.Resolution), opts.BGR), nil
}

// LoadBatch loads every file concurrently and stacks them, in order, into
// a [N, 3, R, R] batch.
func LoadBatch(ctx context.Context, filenames []string, opts Options) (*ts.Tensor, error) {
	if len(filenames) == 0 {
		return nil, errors.New("no images to load")
	}
	items := make([]*ts.Tensor, len(filenames))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, fname := range filenames {
		i, fname := i, fname
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			x, err := Load(fname, opts)
			if err != nil {
				return err
			}
			items[i] = x
			return nil
		})
	}
	err := g.Wait()
	defer func() {
		for _, x := range items {
			if x != nil {
				x.MustDrop()
			}
		}
	}()
	if err != nil {
		return nil, err
	}

	return ts.MustStack(items, 0), nil
}
