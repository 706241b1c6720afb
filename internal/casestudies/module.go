// Package casestudies manages the case study library and the vector
// index that matches case studies to incoming leads.
package casestudies

import (
	"leadintake_backend/internal/casestudies/handler"
	"leadintake_backend/internal/casestudies/repository"
	"leadintake_backend/internal/casestudies/service"
	apphttp "leadintake_backend/internal/http"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/storage"
	"leadintake_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies are the optional infrastructure clients. Nil entries
// disable the corresponding capability instead of failing startup.
type Dependencies struct {
	Embedder service.Embedder
	Index    service.VectorIndex
	Storage  storage.Service
	Bucket   string
}

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, deps Dependencies, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(service.Options{
		Repo:     repo,
		Embedder: deps.Embedder,
		Index:    deps.Index,
		Storage:  deps.Storage,
		Bucket:   deps.Bucket,
		Logger:   log,
	})
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "casestudies"
}

// Matcher returns the case study matcher handed to the leads module.
func (m *Module) Matcher() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/case-studies", m.handler.List)
	ctx.Protected.POST("/case-studies", m.handler.Create)
	ctx.Protected.GET("/case-studies/:id", m.handler.Get)
	ctx.Protected.PUT("/case-studies/:id", m.handler.Update)
	ctx.Protected.DELETE("/case-studies/:id", m.handler.Delete)
	ctx.Protected.POST("/case-studies/:id/asset", m.handler.UploadAsset)
	ctx.Protected.GET("/case-studies/:id/asset", m.handler.AssetURL)
}
