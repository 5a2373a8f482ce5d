package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/umsebenzi/internal/config"
	"github.com/yukikurage/umsebenzi/internal/constants"
	"github.com/yukikurage/umsebenzi/internal/handlers"
	"github.com/yukikurage/umsebenzi/internal/middleware"
	"github.com/yukikurage/umsebenzi/internal/repository"
	"github.com/yukikurage/umsebenzi/internal/services"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const aiRequestsPerMinute = 10

// newRouter wires middleware, services and handlers. redisClient may be nil,
// in which case sessions live in cookies and rate limits are per process.
func newRouter(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*gin.Engine, error) {
	r := gin.New()
	r.Use(middleware.RequestID(), gin.Logger(), middleware.RecoveryWithLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", constants.RequestIDHeader},
		ExposeHeaders:    []string{constants.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	store, err := newSessionStore(cfg)
	if err != nil {
		return nil, err
	}
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	repos := repository.NewStore(db)
	authService := services.NewAuthService(repos.Users())
	projectService := services.NewProjectService(repos)
	taskService := services.NewTaskService(repos, aiService)

	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService, taskService)
	taskHandler := handlers.NewTaskHandler(taskService)
	healthHandler := handlers.NewHealthHandler(db)

	apiLimit, aiLimit := rateLimiters(cfg, redisClient)

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	api.Use(apiLimit)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			owner := middleware.RequireProjectOwner(repos.Projects())

			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", owner, projectHandler.GetProject)
			projects.PUT("/:id", owner, projectHandler.UpdateProject)
			projects.PATCH("/:id/status", owner, projectHandler.UpdateProjectStatus)
			projects.DELETE("/:id", owner, projectHandler.DeleteProject)
			projects.POST("/:id/tasks/generate", owner, aiLimit, projectHandler.GenerateTasks)
		}

		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			access := middleware.RequireTaskAccess(repos.Tasks())

			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:code", access, taskHandler.GetTask)
			tasks.PUT("/:code", access, taskHandler.UpdateTask)
			tasks.PATCH("/:code/status", access, taskHandler.UpdateTaskStatus)
			tasks.DELETE("/:code", access, taskHandler.DeleteTask)
		}
	}

	return r, nil
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	if addr := cfg.RedisAddr(); addr != "" {
		rs, err := redisStore.NewStore(
			10,    // Redis pool size
			"tcp", // network type
			addr,
			"", // password (empty = no password)
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis session store: %w", err)
		}
		store = rs
	} else {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// rateLimiters returns the limiter for the whole API and a stricter one for
// AI generation, keyed by user.
func rateLimiters(cfg *config.Config, redisClient *redis.Client) (gin.HandlerFunc, gin.HandlerFunc) {
	if redisClient != nil {
		api := middleware.NewRedisRateLimiter(redisClient, cfg.RateLimitPerMinute, time.Minute, middleware.IPKeyFunc)
		ai := middleware.NewRedisRateLimiter(redisClient, aiRequestsPerMinute, time.Minute, middleware.UserKeyFunc)
		return api.Middleware("api"), ai.Middleware("ai")
	}

	perSecond := rate.Limit(float64(cfg.RateLimitPerMinute) / 60)
	return middleware.RateLimiter(perSecond, cfg.RateLimitBurst),
		middleware.RateLimiter(rate.Limit(float64(aiRequestsPerMinute)/60), 3)
}
