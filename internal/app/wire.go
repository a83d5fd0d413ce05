//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/uniedit/mediagen/internal/infra/config"
)

// InitializeApp builds the application graph using Wire.
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(AppSet)
	return nil, nil, nil
}
