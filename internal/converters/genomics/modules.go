package genomics

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/SayaAndy/saya-today-format-converter/config"
	"github.com/SayaAndy/saya-today-format-converter/internal/converter"
	"github.com/SayaAndy/saya-today-format-converter/internal/registry"
)

// Modules splits the declarations by the external tool they need. A module
// whose tool is not installed fails to load and is skipped by discovery.
func Modules(cfg config.GenomicsConfig) []registry.Module {
	return []registry.Module{
		{Name: "samtools", Load: requireTool(cfg.SamtoolsBinary, cfg, "Sam2Bam", "Bam2Sam")},
		{Name: "bedtools", Load: requireTool(cfg.BedtoolsBinary, cfg, "Bam2Bed")},
	}
}

func requireTool(binary string, cfg config.GenomicsConfig, names ...string) func() ([]converter.Declaration, error) {
	return func() ([]converter.Declaration, error) {
		binary = strings.TrimSpace(binary)
		if binary == "" {
			return nil, fmt.Errorf("tool not configured")
		}
		if _, err := exec.LookPath(binary); err != nil {
			return nil, fmt.Errorf("binary %q not found: %w", binary, err)
		}
		var decls []converter.Declaration
		for _, decl := range Declarations(cfg) {
			for _, name := range names {
				if decl.Name == name {
					decls = append(decls, decl)
				}
			}
		}
		return decls, nil
	}
}
