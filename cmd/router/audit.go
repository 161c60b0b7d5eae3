package main

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	authrouter "github.com/dsmil/auth-router-golang"
)

// AuditEvent is one row of the optional request audit trail. Requests carry
// client_name and hostname purely for this purpose.
type AuditEvent struct {
	ID         uint   `gorm:"primarykey"`
	RequestID  string `gorm:"index"`
	Event      string
	Status     string
	ClientName string
	Hostname   string
	AccountID  *uint32
	Detail     string
	CreatedAt  time.Time
}

type auditLog struct {
	db     *gorm.DB
	logger *slog.Logger
}

func newAuditLog(path string, logger *slog.Logger) (*auditLog, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&AuditEvent{}); err != nil {
		return nil, err
	}

	return &auditLog{db: db, logger: logger}, nil
}

// recordAudit persists a lifecycle event when auditing is enabled. Audit
// failures are logged and never fail the request being handled.
func (s *Server) recordAudit(e echo.Context, event string, req authrouter.AuthRequest) {
	if s.audit == nil {
		return
	}

	row := AuditEvent{
		RequestID:  req.ID.String(),
		Event:      event,
		Status:     string(req.Status),
		ClientName: req.ClientName,
		Hostname:   req.Hostname,
		AccountID:  req.AccountID,
	}
	if req.Error != nil {
		row.Detail = *req.Error
	}

	if err := s.audit.db.WithContext(e.Request().Context()).Create(&row).Error; err != nil {
		s.logger.Error("could not write audit event", "id", req.ID, "err", err)
	}
}
