package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"dealerchat/internal/core/domain"
)

// MessageSender is the send core entry point consumed by this handler
type MessageSender interface {
	Send(ctx context.Context, req *domain.SendRequest) (*domain.SendResult, error)
}

// SendHandler exposes the outbound send endpoint
type SendHandler struct {
	sender MessageSender
}

// NewSendHandler creates a new send handler
func NewSendHandler(sender MessageSender) *SendHandler {
	return &SendHandler{
		sender: sender,
	}
}

// SendResponse is the success payload of the send endpoint
type SendResponse struct {
	Success    bool              `json:"success"`
	MessageID  string            `json:"messageId"`
	Source     domain.APIType    `json:"source"`
	NumberType domain.NumberType `json:"numberType,omitempty"`
}

// HandleSend handles POST /api/whatsapp/send
func (h *SendHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	if handlePreflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	requestID := uuid.NewString()

	var req domain.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Malformed send request body",
			"error", err,
			"request_id", requestID,
		)
		writeError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}

	slog.Info("Send request received",
		"request_id", requestID,
		"kind", req.Kind(),
		"atendimento_id", req.AtendimentoID,
	)

	result, err := h.sender.Send(r.Context(), &req)
	if err != nil {
		h.writeSendError(w, requestID, err)
		return
	}

	writeJSON(w, http.StatusOK, SendResponse{
		Success:    true,
		MessageID:  result.MessageID,
		Source:     result.Source,
		NumberType: result.NumberType,
	})
}

// writeSendError maps the error taxonomy onto HTTP responses. Upstream
// errors relay the provider's own status and body.
func (h *SendHandler) writeSendError(w http.ResponseWriter, requestID string, err error) {
	slog.Error("Send request failed",
		"error", err,
		"request_id", requestID,
	)

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Message, nil)
		return
	}

	var upstreamErr *domain.UpstreamError
	if errors.As(err, &upstreamErr) {
		status := upstreamErr.StatusCode
		if status == 0 {
			// Transport-level failure (timeout, connection refused)
			status = http.StatusInternalServerError
		}
		msg := "Failed to send message"
		if upstreamErr.Provider == domain.APITypeEvolution {
			msg = "Falha ao enviar mensagem via Evolution"
		}
		writeError(w, status, msg, upstreamErr.Body)
		return
	}

	switch {
	case errors.Is(err, domain.ErrChannelUnresolved):
		writeError(w, http.StatusInternalServerError, "Nenhum número WhatsApp configurado", nil)
	case errors.Is(err, domain.ErrGatewayNotConfigured):
		writeError(w, http.StatusInternalServerError, "Evolution API não configurada", nil)
	case errors.Is(err, domain.ErrNoInstanceAvailable):
		writeError(w, http.StatusBadRequest, "Nenhuma instância Evolution disponível", nil)
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
	}
}
