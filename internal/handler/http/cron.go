package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/harunzafer/fastsvelte/pkg/httputil"
)

// SessionReaper is implemented by *service.SessionManager.
type SessionReaper interface {
	DeleteOldSessions(ctx context.Context, days int) (int64, error)
}

// CronHandler exposes maintenance jobs to an external scheduler.
type CronHandler struct {
	sessions      SessionReaper
	retentionDays int
	logger        *slog.Logger
}

func NewCronHandler(sessions SessionReaper, retentionDays int, logger *slog.Logger) *CronHandler {
	return &CronHandler{sessions: sessions, retentionDays: retentionDays, logger: logger}
}

// DeleteOldSessions handles POST /cron/delete-old-sessions. ?days=
// overrides the configured retention.
func (h *CronHandler) DeleteOldSessions(w http.ResponseWriter, r *http.Request) {
	days := h.retentionDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeCodedError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "invalid days: "+v)
			return
		}
		days = n
	}

	if _, err := h.sessions.DeleteOldSessions(r.Context(), days); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
