// Package evaluationservice предоставляет маршруты для основного приложения.
package evaluationservice

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/rasbandhu/evaluation-service/internal/http/handlers/admin/mentors"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/admin/setrole"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/auth/login"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/auth/register"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/checkout/confirm"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/checkout/ordercreate"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/checkout/webhook"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/contact"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/entitlement/status"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/entitlement/trial"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/evaluation/assign"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/evaluation/create"
	evallist "github.com/rasbandhu/evaluation-service/internal/http/handlers/evaluation/list"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/evaluation/read"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/evaluation/reject"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/evaluation/result"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/evaluation/review"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/health"
	plancreate "github.com/rasbandhu/evaluation-service/internal/http/handlers/plan/create"
	planlist "github.com/rasbandhu/evaluation-service/internal/http/handlers/plan/list"
	planlistall "github.com/rasbandhu/evaluation-service/internal/http/handlers/plan/listall"
	planupdate "github.com/rasbandhu/evaluation-service/internal/http/handlers/plan/update"
	profileget "github.com/rasbandhu/evaluation-service/internal/http/handlers/profile/get"
	profileupdate "github.com/rasbandhu/evaluation-service/internal/http/handlers/profile/update"
	"github.com/rasbandhu/evaluation-service/internal/http/handlers/upload"
	"github.com/rasbandhu/evaluation-service/internal/http/middlewarectx"
	"github.com/rasbandhu/evaluation-service/internal/models"
	authservice "github.com/rasbandhu/evaluation-service/internal/services/auth"
	catalogservice "github.com/rasbandhu/evaluation-service/internal/services/catalog"
	checkoutservice "github.com/rasbandhu/evaluation-service/internal/services/checkout"
	entitlementservice "github.com/rasbandhu/evaluation-service/internal/services/entitlement"
	lifecycleservice "github.com/rasbandhu/evaluation-service/internal/services/lifecycle"
	"github.com/rasbandhu/evaluation-service/internal/storage/files"

	"log/slog"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	authService *authservice.AuthService,
	lifecycleService *lifecycleservice.LifecycleService,
	entitlementService *entitlementservice.EntitlementService,
	catalogService *catalogservice.CatalogService,
	checkoutService *checkoutservice.CheckoutService,
	fileStore *files.Store,
	publish contact.Publisher) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/plans", planlist.New(logger, catalogService).ServeHTTP)
		r.Post("/contact", contact.New(logger, publish).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Get("/profile", profileget.New(logger, authService).ServeHTTP)
			r.Put("/profile", profileupdate.New(logger, authService).ServeHTTP)
			r.Post("/uploads", upload.New(logger, fileStore).ServeHTTP)
			r.Get("/evaluations", evallist.New(logger, lifecycleService).ServeHTTP)
			r.Get("/evaluations/{id}", read.New(logger, lifecycleService).ServeHTTP)

			// Операции студента
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleStudent))
				r.Post("/programs/{program}/evaluations", create.New(logger, lifecycleService).ServeHTTP)
				r.Post("/evaluations/{id}/review", review.New(logger, lifecycleService).ServeHTTP)
				r.Get("/programs/{program}/entitlement", status.New(logger, entitlementService).ServeHTTP)
				r.Post("/trial", trial.New(logger, entitlementService).ServeHTTP)
				r.Post("/checkout/order", ordercreate.New(logger, checkoutService).ServeHTTP)
				r.Post("/checkout/confirm", confirm.New(logger, checkoutService).ServeHTTP)
			})

			// Операции ментора
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleMentor, models.RoleAdmin))
				r.Post("/evaluations/{id}/assign", assign.New(logger, lifecycleService).ServeHTTP)
				r.Post("/evaluations/{id}/result", result.New(logger, lifecycleService).ServeHTTP)
				r.Post("/evaluations/{id}/reject", reject.New(logger, lifecycleService).ServeHTTP)
			})

			// Операции администратора
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin))
				r.Get("/admin/plans", planlistall.New(logger, catalogService).ServeHTTP)
				r.Post("/admin/plans", plancreate.New(logger, catalogService).ServeHTTP)
				r.Put("/admin/plans/{id}", planupdate.New(logger, catalogService).ServeHTTP)
				r.Put("/admin/users/{uid}/role", setrole.New(logger, authService).ServeHTTP)
				r.Get("/admin/mentors", mentors.New(logger, authService).ServeHTTP)
			})
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/payments/webhook", webhook.New(logger, checkoutService).ServeHTTP)
	})

	// Раздача сохранённых вложений
	r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(fileStore.Root()))))

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
