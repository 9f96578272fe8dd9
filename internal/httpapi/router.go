package httpapi

import (
	"time"

	"enginefleet/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// NewRouter assembles the full HTTP surface: the teacher's middleware
// stack (request logging, panic recovery, request IDs, real IP,
// compression, CORS), bearer-token auth on every route but /health, and
// every endpoint in §6.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	origins := d.Cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := &handlers{d: d}

	r.Get("/health", h.health)

	r.Group(func(protected chi.Router) {
		protected.Use(auth.NewMiddleware(d.Cfg.APIAuthToken, "/health").Handler)

		protected.Get("/versions", h.versions)
		protected.Get("/docker-versions", h.versions)
		protected.Get("/locations", h.locations)
		protected.Get("/server-locations", h.locations)
		protected.Get("/instances", h.listInstances)
		protected.Get("/capacity", h.capacity)
		protected.Get("/cleanup-preview", h.cleanupPreview)

		protected.Get("/jobs", h.listJobs)
		protected.Get("/job/{job_id}/events", h.jobEvents)

		// Creation endpoints are rate-limited per client IP: each one
		// does a real image pull / container run and shouldn't be
		// hammered by a retrying client.
		protected.Group(func(create chi.Router) {
			create.Use(httprate.LimitByIP(5, time.Minute))
			create.Post("/enqueue-instance", h.enqueueInstance)
			create.Post("/create-instance", h.createInstance)
			create.Get("/create-instance-stream", h.createInstanceStream)
		})

		protected.Delete("/delete-instance/{name}", h.deleteInstance)

		protected.Get("/instance/{name}/status", h.instanceStatus)
		protected.Get("/instance-status/{name}", h.instanceStatus)
		protected.Post("/instance/{name}/restart", h.restartInstance)
		protected.Post("/restart-instance/{name}", h.restartInstance)
		protected.Post("/instance/{name}/reset", h.resetInstance)
		protected.Post("/reset-instance/{name}", h.resetInstance)
		protected.Post("/instance/{name}/update-version", h.updateVersion)
		protected.Post("/update-version/{name}", h.updateVersion)
		protected.Get("/instance/{name}/logs", h.instanceLogs)

		protected.Get("/admin/system-info", h.systemInfo)
		protected.Get("/admin/activity", h.activityFeed)
	})

	return r
}
