// Package webp converts between WebP and the common raster formats using libwebp.
package webp

import (
	"fmt"
	"image"
	"io"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"github.com/SayaAndy/saya-today-format-converter/config"
	"github.com/SayaAndy/saya-today-format-converter/internal/converter"
	"github.com/SayaAndy/saya-today-format-converter/internal/converters/raster"
)

func Decode(r io.Reader) (image.Image, error) {
	return webp.Decode(r, nil)
}

func Encode(w io.Writer, img image.Image, quality int) error {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
	if err != nil {
		return fmt.Errorf("create webp encoder options: %w", err)
	}
	return webp.Encode(w, img, opts)
}

func Declarations(cfg config.ImageConfig) []converter.Declaration {
	return []converter.Declaration{
		{
			Name:      "Png2Webp",
			InputExt:  "png",
			OutputExt: "webp",
			New:       raster.NewFactory(cfg, ".webp", raster.DecodePNG, Encode),
		},
		{
			Name:      "Jpeg2Webp",
			InputExt:  []string{"jpg", "jpeg"},
			OutputExt: "webp",
			New:       raster.NewFactory(cfg, ".webp", raster.DecodeJPEG, Encode),
		},
		{
			Name:      "Webp2Jpeg",
			InputExt:  "webp",
			OutputExt: []string{"jpg", "jpeg"},
			New:       raster.NewFactory(cfg, ".jpg", Decode, raster.EncodeJPEG),
		},
		{
			Name:      "Webp2Png",
			InputExt:  "webp",
			OutputExt: "png",
			New:       raster.NewFactory(cfg, ".png", Decode, raster.EncodePNG),
		},
	}
}
