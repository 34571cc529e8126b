package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const localConfig = `{
  "Input": {
    "Storage": {"Type": "local-unix", "Config": {"Path": "${CONVERTER_TEST_ROOT}/in/", "MaxDepth": 2}},
    "KnownExtensions": ["sam", "png"]
  },
  "Output": {
    "Storage": {"Type": "local-unix", "Config": {
      "Path": "/srv/out/",
      "FilePermissionMode": "0644",
      "DirPermissionMode": "0755",
      "AttributesImplementation": "none"
    }}
  },
  "TargetExtension": "bam",
  "Registry": {"SkipModules": ["webp"]},
  "Genomics": {"SamtoolsBinary": "/opt/samtools/bin/samtools"}
}`

func TestInitConfigLocal(t *testing.T) {
	t.Setenv("CONVERTER_TEST_ROOT", "/data")

	cfg, err := InitConfig(writeConfig(t, localConfig))
	require.NoError(t, err)

	in, ok := cfg.Input.Storage.Config.(*InputLocalUnixConfig)
	require.True(t, ok)
	assert.Equal(t, "/data/in/", in.Path)
	assert.Equal(t, 2, in.MaxDepth)

	out, ok := cfg.Output.Storage.Config.(*OutputLocalUnixConfig)
	require.True(t, ok)
	assert.Equal(t, "none", out.AttributesImplementation)

	assert.Equal(t, ".bam", cfg.TargetExtension)
	assert.Equal(t, DefaultMaxConcurrentJobs, cfg.MaxConcurrentJobs)
	assert.Equal(t, time.Second, cfg.Process.PollInterval())
	assert.Equal(t, DefaultQuality, cfg.Raster.Quality)
	assert.Equal(t, DefaultQuality, cfg.Webp.Quality)
	assert.Equal(t, "/opt/samtools/bin/samtools", cfg.Genomics.SamtoolsBinary)
	assert.Equal(t, DefaultBedtoolsBinary, cfg.Genomics.BedtoolsBinary)
	assert.Equal(t, []string{"webp"}, cfg.Registry.SkipModules)
}

func TestInitConfigB2(t *testing.T) {
	body := `{
  "Input": {"Storage": {"Type": "b2", "Config": {"BucketName": "raw", "Region": "eu-central-003", "Prefix": "uploads/"}}},
  "Output": {"Storage": {"Type": "b2", "Config": {"BucketName": "converted", "Region": "eu-central-003"}}},
  "TargetExtension": ".webp",
  "MaxConcurrentJobs": 4,
  "Process": {"PollIntervalMs": 250},
  "Webp": {"Quality": 60, "Size": {"MaxWidth": 640, "MaxHeight": 480}}
}`
	cfg, err := InitConfig(writeConfig(t, body))
	require.NoError(t, err)

	b2cfg, ok := cfg.Input.Storage.Config.(*B2Config)
	require.True(t, ok)
	assert.Equal(t, "uploads/", b2cfg.Prefix)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, 250*time.Millisecond, cfg.Process.PollInterval())
	assert.Equal(t, 60, cfg.Webp.Quality)
	assert.Equal(t, 640, cfg.Webp.Size.MaxWidth)
}

func TestInitConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown storage": `{"Input": {"Storage": {"Type": "s3", "Config": {}}}}`,
		"missing target": `{
  "Input": {"Storage": {"Type": "b2", "Config": {"BucketName": "raw", "Region": "r"}}},
  "Output": {"Storage": {"Type": "b2", "Config": {"BucketName": "out", "Region": "r"}}}
}`,
		"bad file mode": `{
  "Input": {"Storage": {"Type": "b2", "Config": {"BucketName": "raw", "Region": "r"}}},
  "Output": {"Storage": {"Type": "local-unix", "Config": {
    "Path": "/out/", "FilePermissionMode": "rw-r--r--", "DirPermissionMode": "0755", "AttributesImplementation": "none"
  }}},
  "TargetExtension": "bam"
}`,
		"quality out of range": `{
  "Input": {"Storage": {"Type": "b2", "Config": {"BucketName": "raw", "Region": "r"}}},
  "Output": {"Storage": {"Type": "b2", "Config": {"BucketName": "out", "Region": "r"}}},
  "TargetExtension": "webp",
  "Webp": {"Quality": 101}
}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := InitConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestInitConfigMissingFile(t *testing.T) {
	_, err := InitConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
