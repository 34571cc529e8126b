// Package raster holds image converters built only on the Go image codecs and
// golang.org/x/image. Every converter can shrink the picture to fit a maximum
// size while keeping its aspect ratio.
package raster

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/SayaAndy/saya-today-format-converter/config"
	"github.com/SayaAndy/saya-today-format-converter/internal/converter"
)

// Decoder reads one image.
type Decoder func(r io.Reader) (image.Image, error)

// Encoder writes one image. quality is ignored by lossless encoders.
type Encoder func(w io.Writer, img image.Image, quality int) error

func DecodePNG(r io.Reader) (image.Image, error)  { return png.Decode(r) }
func DecodeJPEG(r io.Reader) (image.Image, error) { return jpeg.Decode(r) }
func DecodeBMP(r io.Reader) (image.Image, error)  { return bmp.Decode(r) }
func DecodeTIFF(r io.Reader) (image.Image, error) { return tiff.Decode(r) }

func EncodePNG(w io.Writer, img image.Image, _ int) error { return png.Encode(w, img) }

func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

// Declarations lists the raster converters configured with cfg.
func Declarations(cfg config.ImageConfig) []converter.Declaration {
	return []converter.Declaration{
		{
			Name:      "Png2Jpeg",
			InputExt:  "png",
			OutputExt: []string{"jpg", "jpeg"},
			New:       NewFactory(cfg, ".jpg", DecodePNG, EncodeJPEG),
			Doc:       "PNG to baseline JPEG; transparency is flattened",
		},
		{
			Name:      "Jpeg2Png",
			InputExt:  []string{"jpg", "jpeg"},
			OutputExt: "png",
			New:       NewFactory(cfg, ".png", DecodeJPEG, EncodePNG),
		},
		{
			Name:      "Bmp2Png",
			InputExt:  "bmp",
			OutputExt: "png",
			New:       NewFactory(cfg, ".png", DecodeBMP, EncodePNG),
		},
		{
			Name:      "Tiff2Png",
			InputExt:  []string{"tif", "tiff"},
			OutputExt: "png",
			New:       NewFactory(cfg, ".png", DecodeTIFF, EncodePNG),
		},
	}
}

// ImageConverter decodes InputPath, fits it into the configured bounds and
// encodes it to OutputPath.
type ImageConverter struct {
	converter.Base
	decode    Decoder
	encode    Encoder
	maxWidth  int
	maxHeight int
	quality   int
}

// NewFactory builds a converter.Factory. Per-call params "quality",
// "max_width" and "max_height" override cfg.
func NewFactory(cfg config.ImageConfig, outputExt string, decode Decoder, encode Encoder) converter.Factory {
	return func(inputPath, outputPath string, opts converter.Options) (converter.Converter, error) {
		quality := opts.Int("quality", cfg.Quality)
		if quality < 1 || quality > 100 {
			return nil, fmt.Errorf("quality %d out of range 1-100", quality)
		}
		return &ImageConverter{
			Base:      converter.NewBase(inputPath, outputPath, outputExt, opts),
			decode:    decode,
			encode:    encode,
			maxWidth:  opts.Int("max_width", cfg.Size.MaxWidth),
			maxHeight: opts.Int("max_height", cfg.Size.MaxHeight),
			quality:   quality,
		}, nil
	}
}

func (c *ImageConverter) Convert(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(c.InputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	src, err := c.decode(in)
	if err != nil {
		return fmt.Errorf("decode %s: %w", c.InputPath, err)
	}

	dst := Fit(src, c.maxWidth, c.maxHeight)

	out, err := os.Create(c.OutputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := c.encode(out, dst, c.quality); err != nil {
		out.Close()
		os.Remove(c.OutputPath)
		return fmt.Errorf("encode %s: %w", c.OutputPath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(c.OutputPath)
		return fmt.Errorf("close %s: %w", c.OutputPath, err)
	}
	return nil
}

// Fit scales img down so it fits within maxWidth x maxHeight. A zero bound is
// unconstrained. Images already inside the bounds are returned unchanged.
func Fit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return img
	}

	xCoef := 1.0
	if maxWidth > 0 {
		xCoef = float64(maxWidth) / float64(bounds.Dx())
	}
	yCoef := 1.0
	if maxHeight > 0 {
		yCoef = float64(maxHeight) / float64(bounds.Dy())
	}
	slog.Debug("calculated coefficients", slog.Float64("x_coef", xCoef), slog.Float64("y_coef", yCoef))

	minCoef := min(xCoef, yCoef)
	if minCoef >= 1.0 {
		return img
	}

	width := max(1, int(float64(bounds.Dx())*minCoef+0.5))
	height := max(1, int(float64(bounds.Dy())*minCoef+0.5))
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Rect, img, bounds, draw.Over, nil)
	return dst
}
