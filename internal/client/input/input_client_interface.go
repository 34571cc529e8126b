package input

import (
	"context"
	"io"
	"time"

	"github.com/SayaAndy/saya-today-format-converter/config"
)

type InputClient interface {
	Scan(ctx context.Context) ([]string, error)
	ReadMetadata(ctx context.Context, path string) (*MetadataStruct, error)
	GetReader(ctx context.Context, path string) (io.ReadCloser, error)
	ID(path string) string
}

type MetadataStruct struct {
	Name         string
	StorageType  string
	Hash         string
	ContentType  string
	FirstCreated time.Time
	LastModified time.Time
	Misc         map[string]string
	Size         int64
}

var NewInputClientMap = map[string]func(cfg *config.InputConfig) (InputClient, error){
	"b2":         NewB2InputClient,
	"local-unix": NewLocalUnixInputClient,
}
