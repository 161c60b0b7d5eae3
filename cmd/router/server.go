package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	slogecho "github.com/samber/slog-echo"

	authrouter "github.com/dsmil/auth-router-golang"
)

type Server struct {
	store     *authrouter.Store
	lifecycle *authrouter.Lifecycle
	audit     *auditLog
	logger    *slog.Logger
}

func (s *Server) echo() *echo.Echo {
	e := echo.New()
	e.Use(slogecho.New(s.logger))

	e.GET("/healthz", s.handleHealthz)
	e.POST("/v1/token-requests", s.handleCreate)
	e.GET("/v1/token-requests/:id/status", s.handleStatus)
	e.POST("/v1/token-requests/:id/select-account", s.handleSelectAccount)
	e.POST("/v1/token-requests/:id/cancel", s.handleCancel)
	e.POST("/v1/token-requests/:id/deny", s.handleDeny)
	e.GET("/oauth/callback", s.handleCallback)

	return e
}

// runJanitor periodically evicts terminal requests older than the retention
// window. In-flight requests are never touched.
func (s *Server) runJanitor(retention, interval time.Duration) {
	for range time.Tick(interval) {
		if n := s.store.SweepTerminal(retention, time.Now().UTC()); n > 0 {
			s.logger.Info("evicted terminal requests", "count", n)
		}
	}
}

func (s *Server) handleHealthz(e echo.Context) error {
	return e.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// bindStrict decodes a JSON body rejecting unknown fields, so malformed
// payloads fail loudly instead of being silently defaulted.
func bindStrict(e echo.Context, v any) error {
	dec := json.NewDecoder(e.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
