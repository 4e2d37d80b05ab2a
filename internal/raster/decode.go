package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"

	_ "golang.org/x/image/tiff" // Register TIFF/GeoTIFF decoder
)

var (
	// ErrDecode indicates the input is not a readable raster.
	ErrDecode = errors.New("raster decode failed")

	// ErrTooLarge indicates the raster exceeds the configured pixel budget.
	ErrTooLarge = errors.New("raster exceeds pixel limit")
)

// Decode reads an encoded image from r and returns its first band.
// maxPixels <= 0 disables the size check.
func Decode(r io.Reader, maxPixels int64) (*Raster, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrDecode, err)
	}
	return DecodeBytes(data, maxPixels)
}

// DecodeFile decodes the raster stored at path.
func DecodeFile(path string, maxPixels int64) (*Raster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster: %w", err)
	}
	return DecodeBytes(data, maxPixels)
}

// DecodeBytes decodes an in-memory image. The header is inspected first so an
// oversized raster is rejected before its pixels are allocated.
func DecodeBytes(data []byte, maxPixels int64) (*Raster, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %s image is %dx%d, limit is %d pixels",
			ErrTooLarge, format, cfg.Width, cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, format, err)
	}
	return FromImage(img), nil
}

// FromImage extracts band 1 of img at its native depth. Gray images yield
// their luminance sample, colour images their red channel.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	r := New(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < r.Height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+r.Width]
			for x, v := range row {
				r.Pix[y*r.Width+x] = float64(v)
			}
		}
	case *image.Gray16:
		for y := 0; y < r.Height; y++ {
			off := y * src.Stride
			for x := 0; x < r.Width; x++ {
				i := off + 2*x
				r.Pix[y*r.Width+x] = float64(uint16(src.Pix[i])<<8 | uint16(src.Pix[i+1]))
			}
		}
	case *image.RGBA:
		// samples are alpha-premultiplied; undo it unless the pixel is opaque
		for y := 0; y < r.Height; y++ {
			off := y * src.Stride
			for x := 0; x < r.Width; x++ {
				p := src.Pix[off+4*x : off+4*x+4]
				if p[3] == 0xff {
					r.Pix[y*r.Width+x] = float64(p[0])
					continue
				}
				c := color.NRGBAModel.Convert(color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}).(color.NRGBA)
				r.Pix[y*r.Width+x] = float64(c.R)
			}
		}
	case *image.NRGBA:
		for y := 0; y < r.Height; y++ {
			off := y * src.Stride
			for x := 0; x < r.Width; x++ {
				r.Pix[y*r.Width+x] = float64(src.Pix[off+4*x])
			}
		}
	case *image.RGBA64, *image.NRGBA64:
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
				r.Pix[y*r.Width+x] = float64(c.R)
			}
		}
	default:
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				r.Pix[y*r.Width+x] = float64(c.R)
			}
		}
	}
	return r
}
