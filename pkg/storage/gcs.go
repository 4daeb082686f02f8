package storage

import (
	"context"
	"errors"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type gcsStorage struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

func NewGCSStorage(ctx context.Context, bucket, prefix, credentialsFile string) (FileStorage, error) {
	if bucket == "" {
		return nil, errors.New("gcs storage requires a bucket name")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	return &gcsStorage{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: prefix,
	}, nil
}

func (s *gcsStorage) Save(ctx context.Context, owner, filename string, content []byte) (string, error) {
	key := path.Join(s.prefix, objectKey(owner, filename))

	writer := s.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = "text/csv"

	if _, err := writer.Write(content); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to upload %q: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %q: %w", key, err)
	}

	return key, nil
}

func (s *gcsStorage) Release(ctx context.Context, location string) error {
	err := s.bucket.Object(location).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %q: %w", location, err)
	}

	return nil
}

func (s *gcsStorage) Close() error {
	return s.client.Close()
}
