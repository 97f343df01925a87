package api

import (
	"net/http"
	"strings"

	"github.com/ashureev/taskflow/internal/assistant"
	"github.com/ashureev/taskflow/internal/identity"
	"github.com/go-chi/chi/v5"
)

// AssistantHandler answers one-shot assistant queries without widget state.
type AssistantHandler struct {
	*Handler
}

// NewAssistantHandler creates an assistant handler.
func NewAssistantHandler(base *Handler) *AssistantHandler {
	return &AssistantHandler{Handler: base}
}

// RegisterRoutes registers assistant routes.
func (h *AssistantHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/assistant", func(r chi.Router) {
		r.Use(identity.RequireUser)
		r.Post("/chat", h.reply(assistant.ChatRules))
		r.Post("/voice", h.reply(assistant.VoiceRules))
	})
}

type assistantRequest struct {
	Content string `json:"content"`
}

type assistantResponse struct {
	Kind     assistant.Kind `json:"kind"`
	Rule     string         `json:"rule"`
	Response string         `json:"response"`
}

func (h *AssistantHandler) reply(rules *assistant.RuleSet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assistantRequest
		if err := decodeJSON(w, r, &req); err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			Error(w, http.StatusBadRequest, assistant.ErrEmptyInput.Error())
			return
		}

		JSON(w, http.StatusOK, assistantResponse{
			Kind:     rules.Kind,
			Rule:     rules.Match(req.Content),
			Response: rules.Respond(req.Content),
		})
	}
}
