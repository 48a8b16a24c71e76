package api

import (
	"fmt"

	"github.com/gorilla/mux"

	"github.com/garnizeh/bidboard/internal/config"
	"github.com/garnizeh/bidboard/internal/db"
	"github.com/garnizeh/bidboard/internal/hiring"
	"github.com/garnizeh/bidboard/internal/repository/sqlite"
	"github.com/garnizeh/bidboard/internal/validate"
)

func SetupRoutes(cfg *config.Config, version, buildTime string, d *db.DB, notifier hiring.Notifier) (*mux.Router, error) {
	schemas, err := validate.Default()
	if err != nil {
		return nil, fmt.Errorf("load request schemas: %w", err)
	}

	r := mux.NewRouter()

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(d, logger)
	coordinator := hiring.NewCoordinator(repo, notifier, hiring.WithLogger(logger))

	// Create handlers
	systemHandler := &SystemHandler{DB: d.GetConn()}
	authHandler := NewAuthHandler(repo, schemas, cfg.JWTSecret, cfg.TokenDuration)
	jobsHandler := NewJobsHandler(repo, repo, schemas)
	appsHandler := NewApplicationsHandler(repo, repo, schemas)
	hireHandler := NewHireHandler(coordinator, schemas)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")
	r.HandleFunc("/v1/jobs", jobsHandler.ListJobs).Methods("GET")
	r.HandleFunc("/v1/jobs/{id:[0-9]+}", jobsHandler.GetJob).Methods("GET")
	r.HandleFunc("/v1/jobs/{id:[0-9]+}/applications", jobsHandler.ListApplications).Methods("GET")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))
	apiV1.Use(RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	// Marketplace endpoints
	apiV1.HandleFunc("/jobs", jobsHandler.CreateJob).Methods("POST")
	apiV1.HandleFunc("/jobs/{id:[0-9]+}/hire", hireHandler.Hire).Methods("POST")
	apiV1.HandleFunc("/applications", appsHandler.SubmitApplication).Methods("POST")

	return r, nil
}
