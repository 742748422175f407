package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/config"
)

// Reloader re-reads configuration.
type Reloader interface {
	Reload() error
}

// ReloadHandler handles configuration reload requests.
type ReloadHandler struct {
	reloader Reloader
	logger   *slog.Logger
}

// NewReloadHandler creates a new reload handler.
func NewReloadHandler(r Reloader, logger *slog.Logger) *ReloadHandler {
	return &ReloadHandler{
		reloader: r,
		logger:   logger,
	}
}

// ServeHTTP handles POST /-/reload requests.
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.reloader.Reload(); err != nil {
		if errors.Is(err, config.ErrRequiresRestart) {
			// Reloadable keys were applied; the rest wait for a restart.
			h.logger.Warn("reload skipped static keys", "error", err)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(err.Error() + "\n"))
			return
		}

		h.logger.Error("manual reload failed", "error", err)
		http.Error(w, "Configuration reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Configuration reloaded successfully\n"))
}
