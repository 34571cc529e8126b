// Package converters is the plugin namespace. Every module the registry
// discovers at startup is listed by Modules; adding a plugin means adding it here.
package converters

import (
	"github.com/SayaAndy/saya-today-format-converter/config"
	"github.com/SayaAndy/saya-today-format-converter/internal/converter"
	"github.com/SayaAndy/saya-today-format-converter/internal/converters/genomics"
	"github.com/SayaAndy/saya-today-format-converter/internal/converters/raster"
	"github.com/SayaAndy/saya-today-format-converter/internal/converters/webp"
	"github.com/SayaAndy/saya-today-format-converter/internal/registry"
)

func Modules(cfg *config.Config) []registry.Module {
	modules := []registry.Module{
		{Name: "raster", Load: func() ([]converter.Declaration, error) { return raster.Declarations(cfg.Raster), nil }},
		{Name: "webp", Load: func() ([]converter.Declaration, error) { return webp.Declarations(cfg.Webp), nil }},
	}
	return append(modules, genomics.Modules(cfg.Genomics)...)
}
