package gcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// ErrPositionOutOfRange is returned when a listing position does not select any key.
var ErrPositionOutOfRange = errors.New("position out of range")

// BucketLister lists source documents in a GCS bucket.
type BucketLister struct {
	client *storage.Client
}

func NewBucketLister(client *storage.Client) *BucketLister {
	return &BucketLister{client: client}
}

// ListFiles returns the keys under prefix with the given extension, in bucket order. Folder
// placeholders are skipped. A non-nil position returns only the key at that index.
func (l *BucketLister) ListFiles(ctx context.Context, bucket, prefix, extension string, position *int) ([]string, error) {
	it := l.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list gs://%s/%s", bucket, prefix)
		}
		if matchesExtension(attrs.Name, extension) {
			keys = append(keys, attrs.Name)
		}
	}
	slog.Info("Listed source documents.", "bucket", bucket, "prefix", prefix, "count", len(keys))
	return pickPosition(keys, position)
}

func matchesExtension(name, extension string) bool {
	if strings.HasSuffix(name, "/") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(strings.TrimPrefix(extension, ".")))
}

func pickPosition(keys []string, position *int) ([]string, error) {
	if position == nil {
		return keys, nil
	}
	if *position < 0 || *position >= len(keys) {
		return nil, errors.Wrapf(ErrPositionOutOfRange, "position %d with %d keys", *position, len(keys))
	}
	return []string{keys[*position]}, nil
}

// readJSON decodes a GCS object into v.
func readJSON(ctx context.Context, client *storage.Client, bucket, object string, v any) error {
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to get GCS object reader for gs://%s/%s", bucket, object)
	}
	defer r.Close()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrapf(err, "failed to decode gs://%s/%s", bucket, object)
	}
	return nil
}

// streamGCSObject copies a GCS object to a local file.
func streamGCSObject(ctx context.Context, client *storage.Client, bucket, object, destPath string) error {
	gcsReader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to get GCS object reader for gs://%s/%s", bucket, object)
	}
	defer gcsReader.Close()
	localFile, err := os.Create(destPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file at %s", destPath)
	}
	defer localFile.Close()
	if _, err := io.Copy(localFile, gcsReader); err != nil {
		return errors.Wrap(err, "failed to copy GCS object to local file")
	}
	return nil
}

// isNotFound reports whether err means the object does not exist.
func isNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
