package output

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/SayaAndy/saya-today-format-converter/config"
	"github.com/SayaAndy/saya-today-format-converter/internal/client/input"
)

var (
	_ OutputClient = (*LocalUnixOutputClient)(nil)
	_ Writer       = (*localUnixWriter)(nil)
)

const xattrOriginalHash = "user.originalfile.hash"

type LocalUnixOutputClient struct {
	path     string
	fileMode uint32
	dirMode  uint32
	attrMode string
}

func NewLocalUnixOutputClient(cfg *config.OutputConfig) (OutputClient, error) {
	if cfg.Storage.Type != "local-unix" {
		return nil, fmt.Errorf("invalid storage type for LocalUnixOutputClient")
	}
	localCfg := cfg.Storage.Config.(*config.OutputLocalUnixConfig)

	fpm, err := strconv.ParseInt(localCfg.FilePermissionMode, 8, 32)
	if err != nil {
		return nil, fmt.Errorf("fail to parse file permission mode as an octal number: %w", err)
	}

	dpm, err := strconv.ParseInt(localCfg.DirPermissionMode, 8, 32)
	if err != nil {
		return nil, fmt.Errorf("fail to parse directory permission mode as an octal number: %w", err)
	}

	switch localCfg.AttributesImplementation {
	case "xattr", "none":
	default:
		return nil, fmt.Errorf("unknown attributes implementation: %s", localCfg.AttributesImplementation)
	}

	return &LocalUnixOutputClient{localCfg.Path, uint32(fpm), uint32(dpm), localCfg.AttributesImplementation}, nil
}

// GetWriter writes into a hidden temporary file next to path. Close renames it
// into place after tagging it with the original hash, so a partially written
// object is never visible under path.
func (c *LocalUnixOutputClient) GetWriter(_ context.Context, path string, inputMetadata *input.MetadataStruct) (Writer, error) {
	fullPath := filepath.Join(c.path, path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, os.FileMode(c.dirMode)); err != nil {
		return nil, fmt.Errorf("fail to mkdir parent directories for a path: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("fail to create a temporary file: %w", err)
	}
	if err := f.Chmod(os.FileMode(c.fileMode)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("fail to set file permission mode: %w", err)
	}

	w := &localUnixWriter{file: f, finalPath: fullPath}
	if c.attrMode == "xattr" && inputMetadata != nil {
		w.hash = inputMetadata.Hash
		w.tagHash = true
	}
	return w, nil
}

type localUnixWriter struct {
	file      *os.File
	finalPath string
	hash      string
	tagHash   bool
	done      bool
}

func (w *localUnixWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

func (w *localUnixWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	tmpPath := w.file.Name()

	if err := w.file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fail to close a file: %w", err)
	}
	if w.tagHash {
		if err := unix.Setxattr(tmpPath, xattrOriginalHash, []byte(w.hash), 0); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("fail to write %s xattribute: %w", xattrOriginalHash, err)
		}
	}
	if err := os.Rename(tmpPath, w.finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fail to move file into place: %w", err)
	}
	return nil
}

func (w *localUnixWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.file.Close()
	if err := os.Remove(w.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("fail to remove a temporary file: %w", err)
	}
	return nil
}

func (c *LocalUnixOutputClient) ReadMetadata(_ context.Context, path string) (*MetadataStruct, error) {
	fullPath := filepath.Join(c.path, path)

	fileInfo, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("fail to read file info: %w", err)
	}

	misc := map[string]string{
		"Size": strconv.FormatInt(fileInfo.Size(), 10),
	}

	hashOriginal := ""
	if c.attrMode == "xattr" {
		hashOriginal, err = readXattr(fullPath, xattrOriginalHash)
		if err != nil {
			return nil, err
		}
	}

	return &MetadataStruct{
		Name:         fileInfo.Name(),
		StorageType:  "local-unix",
		Hash:         strconv.FormatInt(fileInfo.ModTime().UnixNano(), 16) + "-" + strconv.FormatInt(fileInfo.Size(), 16),
		HashOriginal: hashOriginal,
		ContentType:  mime.TypeByExtension(filepath.Ext(path)),
		FirstCreated: fileInfo.ModTime(),
		LastModified: fileInfo.ModTime(),
		Misc:         misc,
	}, nil
}

func readXattr(path, name string) (string, error) {
	sz, err := unix.Getxattr(path, name, nil)
	if errors.Is(err, unix.ENODATA) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fail to get size of %s attribute: %w", name, err)
	}
	value := make([]byte, sz)
	n, err := unix.Getxattr(path, name, value)
	if err != nil {
		return "", fmt.Errorf("fail to get %s attribute: %w", name, err)
	}
	return string(value[:n]), nil
}

func (c *LocalUnixOutputClient) IsMissing(_ context.Context, path string) bool {
	_, err := os.Stat(filepath.Join(c.path, path))
	return err != nil
}

func (c *LocalUnixOutputClient) ID(path string) string {
	return "file://" + filepath.Join(c.path, path)
}
