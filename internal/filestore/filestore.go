// Package filestore is the object-store boundary, backed by an
// S3-compatible service through minio-go. Paths are namespaced by entity
// id so uploads never collide.
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
)

type FileStore interface {
	// Put uploads the object and returns its public URL.
	Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, objectPath string) error
}

type MinioStore struct {
	client     *minio.Client
	bucket     string
	publicHost string
}

var _ FileStore = (*MinioStore)(nil)

func New(client *minio.Client, bucket, publicHost string) *MinioStore {
	return &MinioStore{
		client:     client,
		bucket:     bucket,
		publicHost: strings.TrimRight(publicHost, "/"),
	}
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket: %w", err)
	}
	return nil
}

func (s *MinioStore) Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectPath,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", objectPath, err)
	}
	return s.publicHost + "/" + s.bucket + "/" + objectPath, nil
}

func (s *MinioStore) Remove(ctx context.Context, objectPath string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectPath,
		minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing %s: %w", objectPath, err)
	}
	return nil
}

// RecipeImagePath returns the object path for a recipe's cover image.
func RecipeImagePath(recipeID, suffix string) string {
	return path.Join("recipe-images", recipeID, "cover"+suffix)
}

// ProfilePhotoPath returns the object path for a user's profile photo.
func ProfilePhotoPath(userID, suffix string) string {
	return path.Join("profiles", userID, "photo"+suffix)
}
