// Package env carries application-wide dependencies through the request
// context, so handlers never reach for hidden globals.
package env

import (
	"context"
	"log/slog"

	"github.com/msegal/heirloom/internal/config"
	"github.com/msegal/heirloom/internal/filestore"
	"github.com/msegal/heirloom/internal/http"
	"github.com/msegal/heirloom/internal/log"
	"github.com/msegal/heirloom/internal/store"
)

type Env struct {
	Logger *slog.Logger
	Store  store.Store
	Files  filestore.FileStore
	HTTP   *http.Client
	Config config.Config
}

func New(logger *slog.Logger, st store.Store, files filestore.FileStore,
	client *http.Client, conf config.Config) *Env {
	if logger == nil {
		logger = log.NullLogger()
	}
	return &Env{
		Logger: logger,
		Store:  st,
		Files:  files,
		HTTP:   client,
		Config: conf,
	}
}

type envKeyType struct{}

var envKey envKeyType

func WithCtx(ctx context.Context, e *Env) context.Context {
	return context.WithValue(ctx, envKey, e)
}

// FromCtx extracts the Env from the context. A missing Env yields a null
// Env rather than a panic so misconfigured tests fail loudly downstream.
func FromCtx(ctx context.Context) *Env {
	if e, ok := ctx.Value(envKey).(*Env); ok {
		return e
	}
	return &Env{Logger: log.NullLogger()}
}
