package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"reminddo/internal/ai"
	"reminddo/internal/middleware"
	"reminddo/internal/monitoring"
	"reminddo/internal/services"
)

// RouterDeps collects what the HTTP surface needs. RateLimiter may be nil to disable limiting.
type RouterDeps struct {
	Auth           services.AuthService
	Register       services.RegisterService
	Users          services.UserService
	Tasks          services.TaskService
	Moods          services.MoodService
	Dashboard      DashboardProvider
	Planner        ai.Planner
	Calendar       CalendarProvider
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	FrontendURL    string
	Logger         *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if engine, ok := binding.Validator.Engine().(*playground.Validate); ok {
		services.ConfigureValidator(engine)
	}

	router := gin.New()
	router.Use(
		middleware.RecoveryWithLog(),
		middleware.CORS(deps.AllowedOrigins),
		monitoring.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Middleware())
	}

	router.GET("/health", monitoring.HealthHandler())
	router.GET("/health/ready", monitoring.ReadinessHandler())
	router.GET("/health/live", monitoring.LivenessHandler())
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/metrics/app", monitoring.MetricsHandler())

	authHandler := NewAuthHandler(deps.Auth, logger)
	refreshHandler := NewRefreshHandler(deps.Auth, logger)
	logoutHandler := NewLogoutHandler(deps.Auth, logger)
	registerHandler := NewRegisterHandler(deps.Register, logger)
	userHandler := NewUserHandler(deps.Users, logger)
	taskHandler := NewTaskHandler(deps.Tasks, logger)
	dashboardHandler := NewDashboardHandler(deps.Dashboard, deps.Moods, logger)
	planHandler := NewPlanHandler(deps.Planner, logger)
	calendarHandler := NewCalendarHandler(deps.Calendar, deps.FrontendURL, logger)

	auth := router.Group("/auth")
	{
		auth.POST("/register", registerHandler.Registration)
		auth.POST("/token", authHandler.Token)
		auth.POST("/refresh", refreshHandler.Refresh)
		auth.POST("/logout", logoutHandler.Logout)
		// Google calls back without our bearer token; the signed state identifies the user.
		auth.GET("/google/callback", calendarHandler.GoogleCallback)
	}

	protected := router.Group("/")
	protected.Use(middleware.AuthzMiddleware(deps.Auth))
	{
		protected.GET("/auth/me", userHandler.GetUserProfile)
		protected.GET("/auth/google", calendarHandler.GoogleRedirect)
		protected.POST("/auth/icloud", calendarHandler.ConnectICloud)

		protected.GET("/dashboard", dashboardHandler.Dashboard)
		protected.POST("/moods", dashboardHandler.RecordMood)

		protected.POST("/tasks", taskHandler.CreateTask)
		protected.POST("/tasks/bulk-schedule", taskHandler.BulkSchedule)
		protected.POST("/tasks/bulk-store", taskHandler.BulkStore)
		protected.PUT("/tasks/:id", taskHandler.UpdateTask)
		protected.DELETE("/tasks/:id", taskHandler.DeleteTask)
		protected.PATCH("/checklist-items/:id", taskHandler.ToggleChecklistItem)

		protected.POST("/ai-plan", planHandler.GeneratePlan)
		protected.GET("/calendar/events", calendarHandler.Events)
	}

	return router
}
