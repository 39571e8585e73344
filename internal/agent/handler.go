package agent

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agentmvp/agent-gateway/internal/llm"
	"github.com/agentmvp/agent-gateway/pkg/logging"
)

// Handler wires HTTP requests to the agent service.
type Handler struct {
	service Service
	logger  *logging.Logger
}

// NewHandler creates an agent handler.
func NewHandler(service Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type processRequest struct {
	Message string     `json:"message"`
	Context ContextMap `json:"context,omitempty"`
}

type processResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// Process handles POST /agent/process.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode process request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Process(r.Context(), ProcessRequest{
		Message: req.Message,
		Context: []ContextEntry(req.Context),
	})
	if err != nil {
		// Full diagnostics stay in the log sink; the response body only
		// carries the generic classification.
		h.logger.Error("failed to process message", "error", err)
		status, message := statusForError(err)
		h.writeError(w, status, message)
		return
	}

	h.writeJSON(w, http.StatusOK, processResponse{
		Response: resp.Message,
		Status:   "success",
	})
}

// statusForError maps a classified failure to the caller-facing status and a
// generic message.
func statusForError(err error) (int, string) {
	var cerr *llm.Error
	if !errors.As(err, &cerr) {
		return http.StatusInternalServerError, "internal error"
	}
	switch cerr.Kind {
	case llm.KindValidationFailure:
		return http.StatusBadRequest, cerr.Message
	case llm.KindAuthFailure:
		return http.StatusInternalServerError, "service is misconfigured"
	case llm.KindRateLimited, llm.KindTransient:
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message, Status: "error"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
