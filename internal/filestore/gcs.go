package filestore

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

// GCS stores attachments as objects in a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a GCS storage. Without a credentials file, application
// default credentials are used.
func NewGCS(ctx context.Context, bucket, prefix, credentialsFile string, opts ...option.ClientOption) (*GCS, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "filestore: create gcs client")
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// Scheme implements Storage.
func (g *GCS) Scheme() string { return SchemeGCS }

// Save uploads data as <prefix><name> and returns a gs:// locator.
func (g *GCS) Save(ctx context.Context, name string, data []byte) (string, error) {
	object := g.prefix + SanitizeName(name)

	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := w.Write(data); err != nil {
		w.Close() //nolint:errcheck
		return "", eris.Wrapf(err, "filestore: gcs write %s", object)
	}
	if err := w.Close(); err != nil {
		return "", eris.Wrapf(err, "filestore: gcs close %s", object)
	}
	return "gs://" + g.bucket + "/" + object, nil
}

// Fetch downloads the object behind a gs:// locator.
func (g *GCS) Fetch(ctx context.Context, locator string) ([]byte, error) {
	bucket, object, err := parseGCSLocator(locator)
	if err != nil {
		return nil, err
	}

	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "filestore: gcs open %s", locator)
	}
	defer r.Close() //nolint:errcheck

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "filestore: gcs read %s", locator)
	}
	return data, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func parseGCSLocator(locator string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(locator, "gs://")
	if !ok {
		return "", "", eris.Errorf("filestore: not a gs:// locator: %q", locator)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", eris.Errorf("filestore: malformed gs:// locator: %q", locator)
	}
	return bucket, object, nil
}
