package input

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/SayaAndy/saya-today-format-converter/config"
)

var _ InputClient = (*LocalUnixInputClient)(nil)

type LocalUnixInputClient struct {
	path            string
	maxDepth        int
	knownExtensions []string
}

func NewLocalUnixInputClient(cfg *config.InputConfig) (InputClient, error) {
	if cfg.Storage.Type != "local-unix" {
		return nil, fmt.Errorf("invalid storage type for LocalUnixInputClient")
	}
	localCfg := cfg.Storage.Config.(*config.InputLocalUnixConfig)

	return &LocalUnixInputClient{
		path:            localCfg.Path,
		maxDepth:        localCfg.MaxDepth,
		knownExtensions: normalizeKnownExtensions(cfg.KnownExtensions),
	}, nil
}

func (c *LocalUnixInputClient) Scan(ctx context.Context) ([]string, error) {
	return c.recursiveScan(ctx, "", c.maxDepth)
}

func (c *LocalUnixInputClient) recursiveScan(ctx context.Context, rel string, depth int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePaths := make([]string, 0)
	entries, err := os.ReadDir(filepath.Join(c.path, rel))
	if err != nil {
		return nil, fmt.Errorf("fail to read directory: %w", err)
	}

	for _, entry := range entries {
		entryRel := filepath.Join(rel, entry.Name())
		if entry.IsDir() {
			if depth <= 0 {
				continue
			}
			subFilePaths, err := c.recursiveScan(ctx, entryRel, depth-1)
			if err != nil {
				return nil, fmt.Errorf("fail to scan subdirectory '%s': %w", entry.Name(), err)
			}
			filePaths = append(filePaths, subFilePaths...)
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if hasKnownExtension(entry.Name(), c.knownExtensions) {
			filePaths = append(filePaths, entryRel)
		}
	}

	return filePaths, nil
}

func (c *LocalUnixInputClient) ReadMetadata(_ context.Context, path string) (*MetadataStruct, error) {
	nodeExt := filepath.Ext(path)
	slog.Debug("got a file extension", slog.String("extension", nodeExt), slog.String("path", path))

	fileInfo, err := os.Stat(filepath.Join(c.path, path))
	if err != nil {
		return nil, fmt.Errorf("fail to read file info: %w", err)
	}

	return &MetadataStruct{
		Name:         fileInfo.Name(),
		StorageType:  "local-unix",
		Hash:         strconv.FormatInt(fileInfo.ModTime().UnixNano(), 16) + "-" + strconv.FormatInt(fileInfo.Size(), 16),
		ContentType:  mime.TypeByExtension(nodeExt),
		FirstCreated: fileInfo.ModTime(),
		LastModified: fileInfo.ModTime(),
		Size:         fileInfo.Size(),
		Misc:         map[string]string{},
	}, nil
}

func (c *LocalUnixInputClient) ID(path string) string {
	return "file://" + filepath.Join(c.path, path)
}

func (c *LocalUnixInputClient) GetReader(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(c.path, path))
}
