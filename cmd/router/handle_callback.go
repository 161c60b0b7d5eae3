package main

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	authrouter "github.com/dsmil/auth-router-golang"
)

// handleCallback is the provider's redirect target. The state parameter must
// decode to a known, non-terminal request id; anything else is rejected
// without touching any record, so garbage or replayed callbacks cannot
// affect unrelated requests.
func (s *Server) handleCallback(e echo.Context) error {
	code := e.QueryParam("code")
	if code == "" {
		return e.String(http.StatusBadRequest, "missing_code")
	}

	state := e.QueryParam("state")
	if state == "" {
		return e.String(http.StatusBadRequest, "missing_state")
	}

	id, err := uuid.Parse(state)
	if err != nil {
		return e.String(http.StatusBadRequest, "invalid_state")
	}

	req, err := s.lifecycle.HandleCallback(e.Request().Context(), id, code)
	switch {
	case errors.Is(err, authrouter.ErrNotFound):
		return e.String(http.StatusNotFound, "request_not_found")
	case errors.Is(err, authrouter.ErrTerminal):
		return e.String(http.StatusConflict, "request_already_completed")
	case err != nil:
		s.logger.Error("token exchange failed", "id", id, "err", err)
		s.recordAudit(e, "error", req)
		return e.String(http.StatusInternalServerError, "OAuth error")
	}

	s.logger.Info("token request approved", "id", id)
	s.recordAudit(e, "approved", req)

	return e.String(http.StatusOK, "You may close this window.")
}
