// Package settings manages the versioned routing configuration consumed
// by the lead lifecycle: classification thresholds and email templates.
package settings

import (
	apphttp "leadintake_backend/internal/http"
	"leadintake_backend/internal/settings/handler"
	"leadintake_backend/internal/settings/repository"
	"leadintake_backend/internal/settings/service"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "settings"
}

// Service returns the configuration service so the composition root can
// seed defaults and hand the provider to the leads module.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/settings/configuration", m.handler.GetActive)
	ctx.Protected.GET("/settings/configurations", m.handler.ListVersions)
	ctx.Protected.PUT("/settings/configuration", m.handler.Update)
}
