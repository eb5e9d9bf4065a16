// Package gcs uploads cleaned PDFs to object storage and answers public-link
// reachability probes for verification.
package gcs

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"docmill/internal/config"
	"docmill/internal/services"
)

// Client wraps one bucket for the upload stage and the link prober.
type Client struct {
	bucket     *storage.BucketHandle
	bucketName string
	prefix     string
	publicHost string
	timeout    time.Duration
}

// New connects using ambient credentials (GOOGLE_APPLICATION_CREDENTIALS).
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Storage.Bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "gcs", "storage.bucket is not configured", nil)
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "gcs", "create storage client", err)
	}
	return &Client{
		bucket:     client.Bucket(cfg.Storage.Bucket),
		bucketName: cfg.Storage.Bucket,
		prefix:     cfg.Storage.Prefix,
		publicHost: cfg.Storage.PublicHost,
		timeout:    time.Duration(cfg.Storage.RequestTimeout) * time.Second,
	}, nil
}

// ObjectName derives the object path for a file within a batch folder.
func (c *Client) ObjectName(folder, fileName string) string {
	parts := make([]string, 0, 3)
	if c.prefix != "" {
		parts = append(parts, c.prefix)
	}
	if folder != "" {
		parts = append(parts, folder)
	}
	parts = append(parts, fileName)
	return path.Join(parts...)
}

// PublicURL returns the browsable URL for an object.
func (c *Client) PublicURL(objectName string) string {
	escaped := make([]string, 0, 4)
	for _, part := range strings.Split(objectName, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return strings.TrimSuffix(c.publicHost, "/") + "/" + c.bucketName + "/" + strings.Join(escaped, "/")
}

// Upload writes a local file to the object only if it does not already
// exist; a file uploaded by a previous run is treated as success, which
// keeps the upload stage idempotent the same way the planner keeps the
// local stages idempotent.
func (c *Client) Upload(ctx context.Context, localPath, objectName string) (string, error) {
	uploadCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "upload", "gcs", "open "+localPath, err)
	}
	defer file.Close()

	writer := c.bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(uploadCtx)
	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		if alreadyExists(err) {
			return c.PublicURL(objectName), nil
		}
		return "", services.Wrap(services.ErrAPI, "upload", "gcs", "write "+objectName, err)
	}
	if err := writer.Close(); err != nil {
		if alreadyExists(err) {
			return c.PublicURL(objectName), nil
		}
		return "", services.Wrap(services.ErrAPI, "upload", "gcs", "finalize "+objectName, err)
	}
	return c.PublicURL(objectName), nil
}

// Reachable reports whether a public URL maps to an existing object in the
// bucket. URLs outside this bucket are unverifiable and count as
// unreachable.
func (c *Client) Reachable(ctx context.Context, publicURL string) (bool, error) {
	objectName, ok := c.objectFromURL(publicURL)
	if !ok {
		return false, nil
	}
	probeCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.bucket.Object(objectName).Attrs(probeCtx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, services.Wrap(services.ErrAPI, "verify", "gcs", "probe "+objectName, err)
}

func (c *Client) objectFromURL(publicURL string) (string, bool) {
	marker := "/" + c.bucketName + "/"
	idx := strings.Index(publicURL, marker)
	if idx < 0 {
		return "", false
	}
	escaped := publicURL[idx+len(marker):]
	parts := strings.Split(escaped, "/")
	for i, part := range parts {
		decoded, err := url.PathUnescape(part)
		if err != nil {
			return "", false
		}
		parts[i] = decoded
	}
	name := strings.Join(parts, "/")
	return name, name != ""
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 412
}
