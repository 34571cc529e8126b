package output

import (
	"context"
	"io"
	"time"

	"github.com/SayaAndy/saya-today-format-converter/config"
	"github.com/SayaAndy/saya-today-format-converter/internal/client/input"
)

type OutputClient interface {
	GetWriter(ctx context.Context, path string, inputMetadata *input.MetadataStruct) (Writer, error)
	ReadMetadata(ctx context.Context, path string) (*MetadataStruct, error)
	IsMissing(ctx context.Context, path string) bool
	ID(path string) string
}

// Writer publishes the object, together with the original hash, only on a
// successful Close. Abort discards everything written and leaves any previous
// object at the path untouched.
type Writer interface {
	io.WriteCloser
	Abort() error
}

type MetadataStruct struct {
	Name         string
	StorageType  string
	Hash         string
	HashOriginal string
	ContentType  string
	FirstCreated time.Time
	LastModified time.Time
	Misc         map[string]string
}

var NewOutputClientMap = map[string]func(cfg *config.OutputConfig) (OutputClient, error){
	"b2":         NewB2OutputClient,
	"local-unix": NewLocalUnixOutputClient,
}
