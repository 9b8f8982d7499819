// Package imgproc normalizes uploaded images with libvips before they are
// sent to the media host. It needs cgo and libvips at build time, so only
// cmd/api links it.
package imgproc

import (
	"fmt"

	"github.com/h2non/bimg"
)

type Normalizer struct {
	MaxDimension int
	Quality      int
}

func NewNormalizer(maxDimension int) *Normalizer {
	return &Normalizer{MaxDimension: maxDimension, Quality: 85}
}

// Transform auto-rotates the image by its EXIF orientation and shrinks it to
// fit MaxDimension on both axes. Images already small enough keep their size.
func (n *Normalizer) Transform(data []byte, contentType string) ([]byte, string, error) {
	img := bimg.NewImage(data)

	size, err := img.Size()
	if err != nil {
		return nil, "", fmt.Errorf("reading image size: %w", err)
	}

	options := bimg.Options{
		Quality:       n.Quality,
		StripMetadata: true,
	}
	if n.MaxDimension > 0 && (size.Width > n.MaxDimension || size.Height > n.MaxDimension) {
		if size.Width >= size.Height {
			options.Width = n.MaxDimension
		} else {
			options.Height = n.MaxDimension
		}
	}

	out, err := img.Process(options)
	if err != nil {
		return nil, "", fmt.Errorf("processing image: %w", err)
	}

	outType := contentType
	if t := bimg.NewImage(out).Type(); t != "" && t != "unknown" {
		outType = "image/" + t
	}
	return out, outType, nil
}
