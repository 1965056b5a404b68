package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/teddyhq/expense-assistant/internal/core"
)

type APIHandler struct {
	chatService *core.ChatService
}

func NewAPIHandler(cs *core.ChatService) *APIHandler {
	return &APIHandler{chatService: cs}
}

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "Message cannot be empty", http.StatusBadRequest)
		return
	}

	result, err := h.chatService.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		writeChatError(w, req.SessionID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// writeChatError maps the typed chat error taxonomy to HTTP status codes.
func writeChatError(w http.ResponseWriter, sessionID string, err error) {
	var chatErr *core.ChatError
	if !errors.As(err, &chatErr) {
		log.Printf("Unexpected chat error (session %s): %v", sessionID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("Chat failed (session %s): %v", sessionID, chatErr)
	switch chatErr.Kind {
	case core.ChatServiceDegraded:
		http.Error(w, "Expense data is currently unavailable, please try again later", http.StatusServiceUnavailable)
	case core.ChatCompletionTimeout:
		http.Error(w, "The assistant took too long to respond", http.StatusGatewayTimeout)
	case core.ChatCompletionUpstreamError, core.ChatCompletionEmptyResponse:
		http.Error(w, "The assistant could not generate a response", http.StatusBadGateway)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	report := h.chatService.Status(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (h *APIHandler) DataSummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.chatService.DataSummary(r.Context())
	if err != nil {
		writeChatError(w, "", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Summary  interface{} `json:"summary"`
		Rendered string      `json:"rendered"`
	}{Summary: summary, Rendered: summary.Render()})
}

func (h *APIHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.chatService.Refresh(r.Context()); err != nil {
		log.Printf("Explicit refresh failed: %v", err)
	}

	report := h.chatService.Status(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(report)
}
