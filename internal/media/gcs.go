package media

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GCSBlobStore writes attachments to a Cloud Storage bucket and returns
// Firebase-style download URLs, so stored objects are retrievable by the
// same browser clients that read them today.
type GCSBlobStore struct {
	client *storage.Client
	bucket string
}

func NewGCSBlobStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSBlobStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCSBlobStore{client: client, bucket: bucket}, nil
}

func (s *GCSBlobStore) Close() error {
	return s.client.Close()
}

var _ BlobStore = (*GCSBlobStore)(nil)

func (s *GCSBlobStore) Put(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	token := uuid.New().String()

	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		// Firebase download token; an arbitrary string the download URL echoes.
		"firebaseStorageDownloadTokens": token,
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", path, err)
	}

	return downloadURL(s.bucket, path, token), nil
}

// downloadURL builds the public Firebase Storage URL for an object:
// https://firebasestorage.googleapis.com/v0/b/{bucket}/o/{path}?alt=media&token={token}
func downloadURL(bucket, objectName, token string) string {
	return fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket,
		url.PathEscape(objectName),
		url.QueryEscape(token),
	)
}
