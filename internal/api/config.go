package api

import (
	"net/http"

	"github.com/ashureev/taskflow/internal/config"
	"github.com/ashureev/taskflow/internal/domain"
	"github.com/ashureev/taskflow/internal/identity"
	"github.com/go-chi/chi/v5"
)

// ConfigHandler exposes the settings the frontend needs before sign-in.
type ConfigHandler struct {
	*Handler
	cfg *config.Config
}

// NewConfigHandler creates a config handler.
func NewConfigHandler(base *Handler, cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{Handler: base, cfg: cfg}
}

// RegisterRoutes registers the config route.
func (h *ConfigHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/config", h.GetConfig)
}

// GetConfig returns the server configuration for the frontend.
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"google_enabled":      h.cfg.Google.Enabled(),
		"chat_delay_ms":       h.cfg.Assistant.ChatDelay.Milliseconds(),
		"voice_delay_ms":      h.cfg.Assistant.VoiceDelay.Milliseconds(),
		"filters":             domain.Filters,
		"min_password_length": identity.MinPasswordLength,
		"development":         h.isDev,
	})
}
