package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/magebridge/internal/buildinfo"
	"github.com/xelth-com/magebridge/internal/database"
	"github.com/xelth-com/magebridge/internal/metrics"
	"github.com/xelth-com/magebridge/internal/middleware"
	"github.com/xelth-com/magebridge/internal/services/scheduler"
	"github.com/xelth-com/magebridge/internal/storefront"
)

// Router wraps the mux router and its dependencies
type Router struct {
	*mux.Router
	db        *database.DB
	secret    string
	connect   storefront.Connector
	scheduler *scheduler.Service
	log       *zap.Logger
}

// Deps are the services the HTTP API drives
type Deps struct {
	DB        *database.DB
	JWTSecret string
	Connect   storefront.Connector
	Scheduler *scheduler.Service
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) *Router {
	r := &Router{
		Router:    mux.NewRouter(),
		db:        d.DB,
		secret:    d.JWTSecret,
		connect:   d.Connect,
		scheduler: d.Scheduler,
		log:       d.Log.Named("http"),
	}
	r.Use(middleware.RequestLogger(r.log))

	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods("GET")
	}

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/refresh", r.refresh).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(d.JWTSecret))

	channels := api.PathPrefix("/channels").Subrouter()
	channels.HandleFunc("", r.listChannels).Methods("GET")
	channels.HandleFunc("", r.createChannel).Methods("POST")
	channels.HandleFunc("/{id}", r.getChannel).Methods("GET")
	channels.HandleFunc("/{id}/test", r.testConnection).Methods("POST")
	channels.HandleFunc("/{id}/websites", r.listWebsites).Methods("GET")
	channels.HandleFunc("/{id}/websites/{website}/stores", r.listStores).Methods("GET")
	channels.HandleFunc("/{id}/configure", r.configureChannel).Methods("POST")
	channels.HandleFunc("/{id}/import/{what}", r.importReferenceData).Methods("POST")
	channels.HandleFunc("/{id}/catalog/update", r.updateCatalog).Methods("POST")
	channels.HandleFunc("/{id}/catalog/export", r.exportCatalog).Methods("POST")
	channels.HandleFunc("/{id}/jobs/{job}", r.runJob).Methods("POST")

	api.HandleFunc("/jobs", r.listJobs).Methods("GET")
	api.HandleFunc("/jobs/{job}", r.runJobAll).Methods("POST")
	api.HandleFunc("/exceptions", r.listExceptions).Methods("GET")

	sales := api.PathPrefix("/sales").Subrouter()
	sales.HandleFunc("/{id}", r.getSale).Methods("GET")
	sales.HandleFunc("/{id}/exceptions", r.saleExceptions).Methods("GET")
	sales.HandleFunc("/{id}/clear-exception", r.clearException).Methods("POST")
	sales.HandleFunc("/{id}/confirm", r.confirmSale).Methods("POST")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	status := "ok"
	code := http.StatusOK
	if sqlDB, err := r.db.DB.DB(); err != nil || sqlDB.PingContext(req.Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	body := buildinfo.Fields()
	body["status"] = status
	respondJSON(w, code, body)
}

func pathID(req *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(req)[name], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
