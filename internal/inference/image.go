package inference

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"

	"golang.org/x/image/draw"

	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// DefaultImageSize is the square input edge of the disease model.
const DefaultImageSize = 224

// ErrInvalidImage is returned when an upload cannot be decoded.
var ErrInvalidImage = errors.NewStd("invalid image file")

// ImageTensor decodes a JPEG or PNG, resizes it to size x size with bilinear
// sampling and returns RGB values scaled to [0,1] in NHWC order with batch 1.
func ImageTensor(r io.Reader, size int) ([]float32, error) {
	if size <= 0 {
		size = DefaultImageSize
	}

	src, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: %w", ErrInvalidImage, err)).
			Component("inference").
			Category(errors.CategoryImageDecode).
			Build()
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	// NHWC with batch=1: length = size * size * 3, alpha dropped
	out := make([]float32, size*size*3)
	for y := range size {
		row := dst.Pix[y*dst.Stride:]
		for x := range size {
			px := row[x*4:]
			base := (y*size + x) * 3
			out[base+0] = float32(px[0]) / 255.0
			out[base+1] = float32(px[1]) / 255.0
			out[base+2] = float32(px[2]) / 255.0
		}
	}

	GetLogger().Trace("image tensor prepared",
		logger.Int("src_width", src.Bounds().Dx()),
		logger.Int("src_height", src.Bounds().Dy()),
		logger.String("format", format))
	return out, nil
}
