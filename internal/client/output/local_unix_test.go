package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/SayaAndy/saya-today-format-converter/config"
	"github.com/SayaAndy/saya-today-format-converter/internal/client/input"
)

func newLocalClient(t *testing.T, root, attrs string) OutputClient {
	t.Helper()
	client, err := NewOutputClientMap["local-unix"](&config.OutputConfig{
		Storage: config.OutputStorageConfig{
			Type: "local-unix",
			Config: &config.OutputLocalUnixConfig{
				Path:                     root,
				FilePermissionMode:       "0640",
				DirPermissionMode:        "0750",
				AttributesImplementation: attrs,
			},
		},
	})
	require.NoError(t, err)
	return client
}

func TestLocalWriterCreatesParents(t *testing.T) {
	root := t.TempDir()
	client := newLocalClient(t, root, "none")
	ctx := context.Background()

	assert.True(t, client.IsMissing(ctx, "run1/out.bam"))

	w, err := client.GetWriter(ctx, "run1/out.bam", &input.MetadataStruct{Hash: "abc"})
	require.NoError(t, err)
	_, err = w.Write([]byte("BAM\x01"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.False(t, client.IsMissing(ctx, "run1/out.bam"))
	body, err := os.ReadFile(filepath.Join(root, "run1", "out.bam"))
	require.NoError(t, err)
	assert.Equal(t, "BAM\x01", string(body))

	info, err := os.Stat(filepath.Join(root, "run1", "out.bam"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	meta, err := client.ReadMetadata(ctx, "run1/out.bam")
	require.NoError(t, err)
	assert.Equal(t, "out.bam", meta.Name)
	assert.Equal(t, "4", meta.Misc["Size"])
	assert.Empty(t, meta.HashOriginal)
}

func TestLocalWriterTruncates(t *testing.T) {
	root := t.TempDir()
	client := newLocalClient(t, root, "none")
	ctx := context.Background()

	for _, body := range []string{"long first version", "short"} {
		w, err := client.GetWriter(ctx, "out.txt", nil)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	body, err := os.ReadFile(filepath.Join(root, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "short", string(body))
}

func TestNewLocalClientRejectsBadModes(t *testing.T) {
	_, err := NewLocalUnixOutputClient(&config.OutputConfig{Storage: config.OutputStorageConfig{
		Type: "local-unix",
		Config: &config.OutputLocalUnixConfig{
			Path: "/tmp", FilePermissionMode: "999", DirPermissionMode: "0755", AttributesImplementation: "none",
		},
	}})
	assert.Error(t, err)

	_, err = NewLocalUnixOutputClient(&config.OutputConfig{Storage: config.OutputStorageConfig{
		Type: "local-unix",
		Config: &config.OutputLocalUnixConfig{
			Path: "/tmp", FilePermissionMode: "0644", DirPermissionMode: "0755", AttributesImplementation: "sidecar",
		},
	}})
	assert.Error(t, err)
}

func TestLocalWriterPublishesOnlyOnClose(t *testing.T) {
	root := t.TempDir()
	client := newLocalClient(t, root, "none")
	ctx := context.Background()

	w, err := client.GetWriter(ctx, "out.bam", &input.MetadataStruct{Hash: "h1"})
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	assert.True(t, client.IsMissing(ctx, "out.bam"))

	require.NoError(t, w.Close())
	assert.False(t, client.IsMissing(ctx, "out.bam"))
}

func TestLocalWriterAbortKeepsPreviousObject(t *testing.T) {
	root := t.TempDir()
	client := newLocalClient(t, root, "none")
	ctx := context.Background()

	w, err := client.GetWriter(ctx, "out.txt", nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("complete"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = client.GetWriter(ctx, "out.txt", nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("trunc"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())
	require.NoError(t, w.Close())

	body, err := os.ReadFile(filepath.Join(root, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "complete", string(body))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.txt", entries[0].Name())
}

func TestLocalWriterTagsHashOnClose(t *testing.T) {
	root := t.TempDir()
	checkFile := filepath.Join(root, "xattr-check")
	require.NoError(t, os.WriteFile(checkFile, nil, 0o644))
	if err := unix.Setxattr(checkFile, "user.check", []byte("1"), 0); err != nil {
		t.Skipf("user xattrs unsupported on %s: %v", root, err)
	}

	client := newLocalClient(t, root, "xattr")
	ctx := context.Background()

	w, err := client.GetWriter(ctx, "aborted.bam", &input.MetadataStruct{Hash: "h1"})
	require.NoError(t, err)
	require.NoError(t, w.Abort())
	assert.True(t, client.IsMissing(ctx, "aborted.bam"))

	w, err = client.GetWriter(ctx, "out.bam", &input.MetadataStruct{Hash: "h2"})
	require.NoError(t, err)
	_, err = w.Write([]byte("BAM"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	meta, err := client.ReadMetadata(ctx, "out.bam")
	require.NoError(t, err)
	assert.Equal(t, "h2", meta.HashOriginal)
	assert.Equal(t, "3", meta.Misc["Size"])
}
