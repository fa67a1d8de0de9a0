package gcstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/shulehq/shule/core"
)

// Store implements core.Filestore on Google Cloud Storage.
type Store struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

var _ core.Filestore = (*Store)(nil)

func Open(ctx context.Context, conf *core.Config) (*Store, error) {
	var opts []option.ClientOption
	if conf.Storage.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Storage.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	return &Store{
		client:        client,
		bucket:        conf.Storage.Bucket,
		publicBaseURL: conf.Storage.PublicBaseURL,
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return "", errors.Wrapf(err, "writing object %s", key)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "closing writer for %s", key)
	}
	return s.publicURL(key), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err == storage.ErrObjectNotExist {
		return core.ErrFileNotFound
	}
	return errors.Wrapf(err, "deleting object %s", key)
}

func (s *Store) publicURL(key string) string {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}
