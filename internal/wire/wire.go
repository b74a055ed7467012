//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sevigo/migration-warden/internal/app"
	"github.com/sevigo/migration-warden/internal/storage"
)

// InitializeApp builds the webhook service.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(AppSet)
	return &app.App{}, nil, nil
}

// InitializeHistory opens only the check history store.
func InitializeHistory() (storage.Store, func(), error) {
	wire.Build(HistorySet)
	return nil, nil, nil
}
