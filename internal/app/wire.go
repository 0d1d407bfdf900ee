//go:build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/aidashboard/dashboard-auth/internal/config"
	"github.com/aidashboard/dashboard-auth/internal/observability"
	"github.com/aidashboard/dashboard-auth/internal/repository"
	"github.com/aidashboard/dashboard-auth/internal/service"
)

func InitializeApp(cfg *config.Config, runtime *observability.Runtime) (*App, func(), error) {
	wire.Build(StoreSet, SecuritySet, ServiceSet, HTTPSet, provideLogger, New)
	return nil, nil, nil
}

func InitializeAdmin(cfg *config.Config) (*Admin, func(), error) {
	wire.Build(
		provideDB,
		repository.NewUserRepository,
		repository.NewSessionRepository,
		SecuritySet,
		service.NewTokenService,
		NewAdmin,
	)
	return nil, nil, nil
}
