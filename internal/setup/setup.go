// Package setup is responsible for setting up components.
package setup

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/msegal/heirloom/internal/config"
	"github.com/msegal/heirloom/internal/filestore"
	"github.com/msegal/heirloom/internal/store/postgres"
)

// Database connects to Postgres and applies the schema.
func Database(ctx context.Context, conf config.Config) (*postgres.Store, error) {
	pool, err := pgxpool.New(ctx, conf.Database.URL())
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	db := postgres.New(pool)
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	return db, nil
}

// FileStore connects to the object store and ensures the bucket exists.
func FileStore(ctx context.Context, conf config.Config) (*filestore.MinioStore, error) {
	client, err := minio.New(conf.ObjectStore.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.ObjectStore.AccessKey, conf.ObjectStore.SecretKey, ""),
		Secure: conf.ObjectStore.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	fs := filestore.New(client, conf.ObjectStore.Bucket, conf.ObjectStore.PublicHost)
	if err := fs.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("initializing bucket: %w", err)
	}

	return fs, nil
}
