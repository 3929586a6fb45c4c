// Package exportstore keeps raw health exports in Google Cloud Storage so a
// user's history can be re-imported after a scoring change.
package exportstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
)

// ObjectWriter opens a writer for bucket/object. It matches the shape of the
// GCS client so tests can swap it out.
type ObjectWriter func(ctx context.Context, bucket, object string) io.WriteCloser

type GCSArchiver struct {
	bucket string
	open   ObjectWriter
	now    func() time.Time
}

func NewGCSArchiver(client *storage.Client, bucket string) *GCSArchiver {
	return &GCSArchiver{
		bucket: bucket,
		open: func(ctx context.Context, bucket, object string) io.WriteCloser {
			w := client.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = "application/zip"
			return w
		},
		now: time.Now,
	}
}

// ObjectName is where an upload from userID lands.
func ObjectName(userID, filename string, at time.Time) string {
	return path.Join("exports", userID, fmt.Sprintf("%s-%s", at.UTC().Format("20060102T150405Z"), path.Base(filename)))
}

func (a *GCSArchiver) Retain(ctx context.Context, userID, filename string, r io.Reader) error {
	object := ObjectName(userID, filename, a.now())
	wc := a.open(ctx, a.bucket, object)
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return fmt.Errorf("exportstore: write gs://%s/%s: %w", a.bucket, object, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("exportstore: close gs://%s/%s: %w", a.bucket, object, err)
	}
	return nil
}
