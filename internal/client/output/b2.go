package output

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/Backblaze/blazer/b2"
	"github.com/SayaAndy/saya-today-format-converter/config"
	"github.com/SayaAndy/saya-today-format-converter/internal/client/input"
)

var (
	_ OutputClient = (*B2OutputClient)(nil)
	_ Writer       = (*b2Writer)(nil)
)

const b2OriginalHashKey = "original-hash"

type B2OutputClient struct {
	prefix     string
	bucket     *b2.Bucket
	bucketName string
	b2cl       *b2.Client
}

func NewB2OutputClient(cfg *config.OutputConfig) (OutputClient, error) {
	if cfg.Storage.Type != "b2" {
		return nil, fmt.Errorf("invalid storage type for B2OutputClient")
	}
	b2cfg := cfg.Storage.Config.(*config.B2Config)

	b2cl, err := b2.NewClient(context.Background(), b2cfg.KeyID, b2cfg.ApplicationKey)
	if err != nil {
		return nil, fmt.Errorf("create b2 client: %w", err)
	}

	bucket, err := b2cl.Bucket(context.Background(), b2cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("open b2 bucket %q: %w", b2cfg.BucketName, err)
	}

	return &B2OutputClient{b2cl: b2cl, bucket: bucket, bucketName: b2cfg.BucketName, prefix: b2cfg.Prefix}, nil
}

type b2Writer struct {
	*b2.Writer
	cancel context.CancelFunc
}

func (w *b2Writer) Close() error {
	defer w.cancel()
	return w.Writer.Close()
}

// Abort cancels the upload context first so Close cannot complete the object.
func (w *b2Writer) Abort() error {
	w.cancel()
	_ = w.Writer.Close()
	return nil
}

func (c *B2OutputClient) GetWriter(ctx context.Context, path string, inputMetadata *input.MetadataStruct) (Writer, error) {
	obj := c.bucket.Object(c.prefix + path)
	if obj == nil {
		return nil, fmt.Errorf("failed to reference object in B2 bucket")
	}

	attrs := &b2.Attrs{
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Info:        map[string]string{},
	}
	if inputMetadata != nil {
		attrs.Info[b2OriginalHashKey] = inputMetadata.Hash
	}

	uploadCtx, cancel := context.WithCancel(ctx)
	return &b2Writer{Writer: obj.NewWriter(uploadCtx, b2.WithAttrsOption(attrs)), cancel: cancel}, nil
}

func (c *B2OutputClient) ReadMetadata(ctx context.Context, path string) (*MetadataStruct, error) {
	obj := c.bucket.Object(c.prefix + path)
	if obj == nil {
		return nil, fmt.Errorf("failed to reference object in B2 bucket")
	}

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("get attributes for object: %w", err)
	}

	misc := make(map[string]string, len(attrs.Info)+2)
	for k, v := range attrs.Info {
		misc[k] = v
	}
	misc["Size"] = fmt.Sprintf("%d", attrs.Size)

	switch attrs.Status {
	case b2.Uploaded:
		misc["Status"] = "Uploaded"
	case b2.Folder:
		misc["Status"] = "Folder"
	case b2.Hider:
		misc["Status"] = "Hider"
	case b2.Started:
		misc["Status"] = "Started"
	default:
		misc["Status"] = "Unknown"
	}

	return &MetadataStruct{
		Name:         attrs.Name,
		StorageType:  "b2",
		Hash:         attrs.SHA1,
		HashOriginal: attrs.Info[b2OriginalHashKey],
		ContentType:  attrs.ContentType,
		FirstCreated: attrs.UploadTimestamp,
		LastModified: attrs.LastModified,
		Misc:         misc,
	}, nil
}

func (c *B2OutputClient) IsMissing(ctx context.Context, path string) bool {
	obj := c.bucket.Object(c.prefix + path)
	if obj == nil {
		return true
	}

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return true
	}

	return attrs.Status == b2.Hider
}

func (c *B2OutputClient) ID(path string) string {
	return fmt.Sprintf("b2://%s/%s%s", c.bucketName, c.prefix, path)
}
