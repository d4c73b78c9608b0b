package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wellness/wellness/internal/platform/auth"
)

// AuditEntry records one authenticated access to client data.
type AuditEntry struct {
	UserID     string
	Role       string
	Action     string // read, create, update, delete
	Route      string
	Path       string
	Method     string
	CompanyID  string
	ClientID   string
	IPAddress  string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs who touched which client record. It must run after
// authentication so the principal is on the request context. Credential
// routes are never audited.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditablePath(req.URL.Path) {
				return next(c)
			}

			err := next(c)

			p := auth.PrincipalFromContext(req.Context())
			entry := AuditEntry{
				UserID:     p.ID,
				Role:       p.Role,
				Action:     httpMethodToAction(req.Method),
				Route:      c.Path(),
				Path:       req.URL.Path,
				Method:     req.Method,
				CompanyID:  c.Param("companyId"),
				ClientID:   c.Param("clientId"),
				IPAddress:  c.RealIP(),
				StatusCode: c.Response().Status,
				Timestamp:  time.Now().UTC(),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("role", entry.Role).
				Str("action", entry.Action).
				Str("route", entry.Route).
				Str("company_id", entry.CompanyID).
				Str("client_id", entry.ClientID).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("client_data_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/") && !strings.HasPrefix(path, "/api/auth/")
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
