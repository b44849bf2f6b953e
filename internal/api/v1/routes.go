package v1

import (
	"time"

	"ghost-crew/internal/api/v1/handlers"
	"ghost-crew/internal/config"
	"ghost-crew/internal/metrics"
	"ghost-crew/internal/middleware"
	"ghost-crew/internal/models"
	myws "ghost-crew/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApp builds the Fiber app with middleware and every route mounted.
func NewApp(deps *config.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 << 20,
	})

	app.Use(middleware.ErrorHandler())
	app.Use(middleware.Metrics())
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if deps.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        deps.RateLimitMax,
			Expiration: 1 * time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/healthz" || c.Path() == "/metrics"
			},
		}))
	}

	RegisterRoutes(app, deps)
	return app
}

func RegisterRoutes(app *fiber.App, deps *config.Dependencies) {
	h := handlers.New(deps)
	useToken := middleware.UseToken(deps.SecretKey)
	reviewer := middleware.RequireRole(models.RoleSupervisor, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	app.Get("/healthz", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	api := app.Group("/api/v1")

	// Auth
	api.Post("/login", h.Login)

	// Jobs
	jobRoutes := api.Group("/jobs", useToken)
	jobRoutes.Get("/", h.ListJobs)
	jobRoutes.Get("/:id", h.GetJob)
	jobRoutes.Get("/:id/checklist", h.JobChecklist)
	jobRoutes.Put("/:id/start", h.StartJob)
	jobRoutes.Put("/:id/finish", h.FinishJob)

	// Task completions and issues
	api.Put("/task-completions", useToken, h.UpsertTaskCompletion)
	api.Post("/issues", useToken, h.ReportIssue)

	// Review
	reviewRoutes := api.Group("/review", useToken, reviewer)
	reviewRoutes.Get("/", h.ListReviewQueue)
	reviewRoutes.Get("/:jobId", h.GetReview)
	reviewRoutes.Post("/:jobId", h.ApproveJob)

	// Reference data
	api.Get("/yachts", useToken, h.ListYachts)
	api.Post("/yachts", useToken, adminOnly, h.CreateYacht)
	api.Get("/users", useToken, reviewer, h.GetAllUsers)
	api.Post("/users", useToken, adminOnly, h.CreateUser)

	// Reports
	api.Get("/reports/jobs.xlsx", useToken, reviewer, h.ExportJobsReport)

	// Photo upload
	uploadRoutes := api.Group("/upload", useToken)
	uploadRoutes.Post("/photo", h.UploadPhoto)
	uploadRoutes.Get("/:filename", h.GetFile)

	// Live job feed for supervisors
	if deps.Hub != nil {
		hub := deps.Hub
		app.Use("/ws", useToken, reviewer, func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				c.Locals("allowed", true)
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/jobs", websocket.New(func(c *websocket.Conn) {
			userID, _ := c.Locals("userID").(int)
			client := &myws.Client{Conn: c, UserID: userID}
			if !hub.Add(client) {
				return
			}
			defer hub.Remove(client)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					break
				}
			}
		}))
	}
}
