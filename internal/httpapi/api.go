// Package httpapi exposes the widget state machine over a small JSON API
// so a thin front end can drive it without owning any chat logic.
package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/s-home/messenger-go/internal/config"
	"github.com/s-home/messenger-go/internal/i18n"
	"github.com/s-home/messenger-go/internal/middleware"
	"github.com/s-home/messenger-go/pkg/messenger"
)

// API wires one widget session to HTTP handlers
type API struct {
	config      *config.Config
	widget      *messenger.Widget
	rateLimiter middleware.RateLimiter
	security    *middleware.SecurityMiddleware
	metrics     *middleware.Metrics
	localizer   *i18n.Localizer
	logger      *logrus.Logger
}

// NewAPI creates the API around an already mounted widget
func NewAPI(
	cfg *config.Config,
	widget *messenger.Widget,
	rateLimiter middleware.RateLimiter,
	metrics *middleware.Metrics,
	localizer *i18n.Localizer,
	logger *logrus.Logger,
) *API {
	return &API{
		config:      cfg,
		widget:      widget,
		rateLimiter: rateLimiter,
		security:    middleware.NewSecurityMiddleware(logger),
		metrics:     metrics,
		localizer:   localizer,
		logger:      logger,
	}
}

// Router builds the route table
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(a.limit)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/messages", a.handleListMessages).Methods(http.MethodGet)
	api.HandleFunc("/messages", a.handleAddMessages).Methods(http.MethodPost)
	api.HandleFunc("/messages/{key}", a.handleUpdateMessage).Methods(http.MethodPatch)
	api.HandleFunc("/messages/{key}", a.handleRemoveMessage).Methods(http.MethodDelete)
	api.HandleFunc("/messages", a.handleClear).Methods(http.MethodDelete)
	api.HandleFunc("/history", a.handleDeleteHistory).Methods(http.MethodDelete)

	api.HandleFunc("/input", a.handleGetInput).Methods(http.MethodGet)
	api.HandleFunc("/input", a.handleSetInput).Methods(http.MethodPut)
	api.HandleFunc("/send", a.handleSend).Methods(http.MethodPost)

	api.HandleFunc("/settings", a.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings/{id}", a.handleSetSetting).Methods(http.MethodPut)
	api.HandleFunc("/filters/{id}", a.handleSetFilter).Methods(http.MethodPut)

	api.HandleFunc("/speech/mute", a.handleSetMute).Methods(http.MethodPut)
	api.HandleFunc("/speech/replay", a.handleReplay).Methods(http.MethodPost)
	api.HandleFunc("/record/toggle", a.handleToggleRecord).Methods(http.MethodPost)

	api.HandleFunc("/attachment", a.handleAttach).Methods(http.MethodPost)
	api.HandleFunc("/attachment", a.handleClearAttachment).Methods(http.MethodDelete)

	api.HandleFunc("/background", a.handleSaveBackground).Methods(http.MethodPut)
	api.HandleFunc("/avatar", a.handleSaveAvatar).Methods(http.MethodPut)

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

// Server builds the HTTP server with the configured timeouts
func (a *API) Server() *http.Server {
	readTimeout := time.Duration(a.config.Server.ReadTimeout) * time.Second
	writeTimeout := time.Duration(a.config.Server.WriteTimeout) * time.Second
	if readTimeout == 0 {
		readTimeout = 15 * time.Second
	}
	if writeTimeout == 0 {
		writeTimeout = 15 * time.Second
	}
	return &http.Server{
		Addr:         a.config.Server.Addr,
		Handler:      a.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}

// limit applies the per-client rate limit
func (a *API) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		client := clientAddr(req)
		if !a.rateLimiter.Allow(client) {
			a.metrics.RecordRateLimitExceeded(client)
			a.writeError(w, http.StatusTooManyRequests, i18n.MsgRateLimitExceeded, req)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func clientAddr(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			a.logger.WithError(err).Warn("Failed to encode response")
		}
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, messageID string, req *http.Request) {
	lang := req.URL.Query().Get("lang")
	if lang == "" {
		lang = a.config.I18n.DefaultLanguage
	}
	a.writeJSON(w, status, map[string]string{
		"error": a.localizer.Get(lang, messageID, nil),
	})
}
