package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	authrouter "github.com/dsmil/auth-router-golang"
)

func strPtr(s string) *string { return &s }

func (s *Server) handleCreate(e echo.Context) error {
	var body authrouter.CreateTokenRequest
	if err := bindStrict(e, &body); err != nil {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if body.ClientName == "" || body.Hostname == "" {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "client_name and hostname are required"})
	}

	req := s.lifecycle.Create(body.ClientName, body.Hostname, body.Scopes)

	s.logger.Info("created token request",
		"id", req.ID,
		"client_name", req.ClientName,
		"hostname", req.Hostname,
	)
	s.recordAudit(e, "created", req)

	return e.JSON(http.StatusAccepted, authrouter.CreateTokenResponse{
		RequestID: req.ID,
		Status:    req.Status,
	})
}

func (s *Server) handleStatus(e echo.Context) error {
	id, err := uuid.Parse(e.Param("id"))
	if err != nil {
		return e.JSON(http.StatusBadRequest, authrouter.StatusResponse{
			RequestID: uuid.Nil,
			Status:    authrouter.StatusError,
			Error:     strPtr(fmt.Sprintf("invalid_request_id: %v", err)),
		})
	}

	req, err := s.lifecycle.Status(id)
	if err != nil {
		return e.JSON(http.StatusNotFound, authrouter.StatusResponse{
			RequestID: id,
			Status:    authrouter.StatusError,
			Error:     strPtr("request_not_found"),
		})
	}

	return e.JSON(http.StatusOK, authrouter.StatusResponse{
		RequestID: req.ID,
		Status:    req.Status,
		Token:     req.Token,
		Error:     req.Error,
	})
}

func (s *Server) handleSelectAccount(e echo.Context) error {
	id, err := uuid.Parse(e.Param("id"))
	if err != nil {
		return e.JSON(http.StatusBadRequest, authrouter.SelectAccountResponse{
			RequestID: uuid.Nil,
			Status:    authrouter.StatusError,
			Error:     strPtr(fmt.Sprintf("invalid_request_id: %v", err)),
		})
	}

	var body authrouter.SelectAccountRequest
	if err := bindStrict(e, &body); err != nil {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if body.AccountID == 0 {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "account_id is required"})
	}

	req, err := s.lifecycle.SelectAccount(e.Request().Context(), id, body.AccountID)
	switch {
	case errors.Is(err, authrouter.ErrNotFound):
		return e.JSON(http.StatusNotFound, authrouter.SelectAccountResponse{
			RequestID: id,
			Status:    authrouter.StatusError,
			AccountID: body.AccountID,
			Error:     strPtr("request_not_found"),
		})
	case errors.Is(err, authrouter.ErrTerminal):
		return e.JSON(http.StatusConflict, authrouter.SelectAccountResponse{
			RequestID: req.ID,
			Status:    req.Status,
			AccountID: body.AccountID,
			Error:     strPtr(err.Error()),
		})
	case err != nil:
		// URL build or notifier failure: the request was moved to Error and
		// the failure is reported in the body.
		s.logger.Error("select account failed", "id", id, "err", err)
		s.recordAudit(e, "error", req)
	default:
		s.logger.Info("account selected", "id", id, "account_id", body.AccountID)
		s.recordAudit(e, "account_selected", req)
	}

	return e.JSON(http.StatusOK, authrouter.SelectAccountResponse{
		RequestID: req.ID,
		Status:    req.Status,
		AccountID: body.AccountID,
		Error:     req.Error,
	})
}

func (s *Server) handleCancel(e echo.Context) error {
	return s.finish(e, authrouter.StatusCancelled)
}

func (s *Server) handleDeny(e echo.Context) error {
	return s.finish(e, authrouter.StatusDenied)
}

func (s *Server) finish(e echo.Context, status authrouter.RequestStatus) error {
	id, err := uuid.Parse(e.Param("id"))
	if err != nil {
		return e.JSON(http.StatusBadRequest, authrouter.StatusResponse{
			RequestID: uuid.Nil,
			Status:    authrouter.StatusError,
			Error:     strPtr(fmt.Sprintf("invalid_request_id: %v", err)),
		})
	}

	var req authrouter.AuthRequest
	if status == authrouter.StatusDenied {
		req, err = s.lifecycle.Deny(id)
	} else {
		req, err = s.lifecycle.Cancel(id)
	}

	switch {
	case errors.Is(err, authrouter.ErrNotFound):
		return e.JSON(http.StatusNotFound, authrouter.StatusResponse{
			RequestID: id,
			Status:    authrouter.StatusError,
			Error:     strPtr("request_not_found"),
		})
	case errors.Is(err, authrouter.ErrTerminal):
		return e.JSON(http.StatusConflict, authrouter.StatusResponse{
			RequestID: req.ID,
			Status:    req.Status,
			Error:     strPtr(err.Error()),
		})
	}

	s.logger.Info("request finished", "id", id, "status", req.Status)
	s.recordAudit(e, string(req.Status), req)

	return e.JSON(http.StatusOK, authrouter.StatusResponse{
		RequestID: req.ID,
		Status:    req.Status,
	})
}
