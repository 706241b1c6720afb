// Package leads is the lead intake and routing bounded context: public
// submission, automated classification, human review, terminal delivery,
// reroute, and meeting booking.
package leads

import (
	"leadintake_backend/internal/events"
	apphttp "leadintake_backend/internal/http"
	"leadintake_backend/internal/leads/handler"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/internal/leads/repository"
	"leadintake_backend/internal/leads/service"
	"leadintake_backend/platform/config"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies are the collaborator implementations the lifecycle needs.
// They are constructed in the composition root so this module stays
// decoupled from the AI, email, scheduler, and settings modules.
type Dependencies struct {
	Classifier ports.Classifier
	Generator  ports.BodyGenerator
	Matcher    ports.CaseStudyMatcher
	Dispatcher ports.ClassifyDispatcher
	Sender     ports.EmailSender
	Composer   ports.MessageComposer
	Config     ports.ConfigProvider
	Analytics  ports.AnalyticsSink
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

func NewModule(pool *pgxpool.Pool, deps Dependencies, bus events.Bus, val *validator.Validator, phoneCfg config.PhoneConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(service.Options{
		Repo:               repo,
		Classifier:         deps.Classifier,
		Generator:          deps.Generator,
		Matcher:            deps.Matcher,
		Dispatcher:         deps.Dispatcher,
		Sender:             deps.Sender,
		Composer:           deps.Composer,
		Config:             deps.Config,
		Analytics:          deps.Analytics,
		Bus:                bus,
		Logger:             log,
		DefaultPhoneRegion: phoneCfg.GetDefaultPhoneRegion(),
	})
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lifecycle service for the worker and inbox poller.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts the leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public: the intake form and the booking page reached via the
	// emailed link or QR code.
	ctx.V1.POST("/leads", ctx.SubmitRateLimiter.RateLimit(), m.handler.Submit)
	ctx.V1.POST("/leads/:id/book-meeting", m.handler.BookMeeting)

	// Reviewer dashboard.
	ctx.Protected.GET("/leads", m.handler.List)
	ctx.Protected.GET("/leads/:id", m.handler.Get)
	ctx.Protected.POST("/leads/:id/reclassify", m.handler.Reclassify)
	ctx.Protected.POST("/leads/:id/approve", m.handler.Approve)
	ctx.Protected.PUT("/leads/:id/draft", m.handler.EditDraft)
	ctx.Protected.POST("/leads/:id/reroute", m.handler.Reroute)
	ctx.Protected.POST("/leads/:id/self-service", m.handler.MarkSelfService)
	ctx.Protected.PUT("/leads/:id/case-studies", m.handler.AttachCaseStudies)
	ctx.Protected.POST("/leads/:id/notes", m.handler.AddNote)
}
