package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type Config struct {
	Input             InputConfig    `json:"Input" validate:"required"`
	Output            OutputConfig   `json:"Output" validate:"required"`
	TargetExtension   string         `json:"TargetExtension" validate:"required,min=1,excludesall=/"`
	MaxConcurrentJobs int            `json:"MaxConcurrentJobs" validate:"required,min=1"`
	ForceRewrite      bool           `json:"ForceRewrite"`
	Registry          RegistryConfig `json:"Registry"`
	Process           ProcessConfig  `json:"Process"`
	Raster            ImageConfig    `json:"Raster"`
	Webp              ImageConfig    `json:"Webp"`
	Genomics          GenomicsConfig `json:"Genomics"`
}

type InputConfig struct {
	Storage         InputStorageConfig `json:"Storage" validate:"required"`
	KnownExtensions []string           `json:"KnownExtensions" validate:"min=0,dive,min=1"`
}

type OutputConfig struct {
	Storage OutputStorageConfig `json:"Storage" validate:"required"`
}

type InputStorageConfig struct {
	Type   string `json:"Type" validate:"required,oneof=b2 local-unix"`
	Config any    `json:"Config" validate:"required"`
}

func (sc *InputStorageConfig) UnmarshalJSON(data []byte) error {
	var tmp struct {
		Type   string          `json:"Type"`
		Config json.RawMessage `json:"Config"`
	}

	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	sc.Type = tmp.Type

	switch tmp.Type {
	case "b2":
		var b2Config B2Config
		if err := json.Unmarshal(tmp.Config, &b2Config); err != nil {
			return fmt.Errorf("unmarshal B2Config: %w", err)
		}
		sc.Config = &b2Config
	case "local-unix":
		var localConfig InputLocalUnixConfig
		if err := json.Unmarshal(tmp.Config, &localConfig); err != nil {
			return fmt.Errorf("unmarshal InputLocalUnixConfig: %w", err)
		}
		sc.Config = &localConfig
	default:
		return fmt.Errorf("unsupported storage type: %s", tmp.Type)
	}

	return nil
}

type OutputStorageConfig struct {
	Type   string `json:"Type" validate:"required,oneof=b2 local-unix"`
	Config any    `json:"Config" validate:"required"`
}

func (sc *OutputStorageConfig) UnmarshalJSON(data []byte) error {
	var tmp struct {
		Type   string          `json:"Type"`
		Config json.RawMessage `json:"Config"`
	}

	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	sc.Type = tmp.Type

	switch tmp.Type {
	case "b2":
		var b2Config B2Config
		if err := json.Unmarshal(tmp.Config, &b2Config); err != nil {
			return fmt.Errorf("unmarshal B2Config: %w", err)
		}
		sc.Config = &b2Config
	case "local-unix":
		var localConfig OutputLocalUnixConfig
		if err := json.Unmarshal(tmp.Config, &localConfig); err != nil {
			return fmt.Errorf("unmarshal OutputLocalUnixConfig: %w", err)
		}
		sc.Config = &localConfig
	default:
		return fmt.Errorf("unsupported storage type: %s", tmp.Type)
	}

	return nil
}

type B2Config struct {
	BucketName     string `json:"BucketName" validate:"required,min=1"`
	Region         string `json:"Region" validate:"required,min=1"`
	Prefix         string `json:"Prefix"`
	KeyID          string `json:"KeyID"`
	ApplicationKey string `json:"ApplicationKey"`
}

type InputLocalUnixConfig struct {
	Path     string `json:"Path" validate:"required,min=1"`
	MaxDepth int    `json:"MaxDepth" validate:"min=0"`
}

type OutputLocalUnixConfig struct {
	Path                     string `json:"Path" validate:"required,min=1"`
	FilePermissionMode       string `json:"FilePermissionMode" validate:"required,octal_mode"`
	DirPermissionMode        string `json:"DirPermissionMode" validate:"required,octal_mode"`
	AttributesImplementation string `json:"AttributesImplementation" validate:"required,oneof=xattr none"`
}

type RegistryConfig struct {
	SkipModules []string `json:"SkipModules" validate:"dive,min=1"`
}

type ProcessConfig struct {
	Shell          string `json:"Shell"`
	PollIntervalMs int    `json:"PollIntervalMs" validate:"min=0"`
	Verbose        bool   `json:"Verbose"`
}

func (pc ProcessConfig) PollInterval() time.Duration {
	return time.Duration(pc.PollIntervalMs) * time.Millisecond
}

type ImageConfig struct {
	Quality int        `json:"Quality" validate:"min=0,max=100"`
	Size    SizeConfig `json:"Size"`
}

type SizeConfig struct {
	MaxWidth  int `json:"MaxWidth" validate:"min=0"`
	MaxHeight int `json:"MaxHeight" validate:"min=0"`
}

type GenomicsConfig struct {
	SamtoolsBinary string `json:"SamtoolsBinary"`
	BedtoolsBinary string `json:"BedtoolsBinary"`
}

func LoadConfig(path string, config *Config) error {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	expandedFileBytes := []byte(os.ExpandEnv(string(fileBytes)))

	if err = json.Unmarshal(expandedFileBytes, config); err != nil {
		return err
	}

	return nil
}

func InitConfig(path string) (*Config, error) {
	config := &Config{}
	if err := LoadConfig(path, config); err != nil {
		return nil, err
	}

	applyDefaults(config)

	if err := newValidator().Struct(config); err != nil {
		return nil, err
	}

	return config, nil
}
