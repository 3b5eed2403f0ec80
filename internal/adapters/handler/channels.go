package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"dealerchat/internal/core/domain"
	"dealerchat/internal/core/ports"
)

// ChannelHandler exposes the channel admin endpoints
type ChannelHandler struct {
	channels ports.ChannelRegistry
	meta     ports.MetaTransport
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(channels ports.ChannelRegistry, meta ports.MetaTransport) *ChannelHandler {
	return &ChannelHandler{
		channels: channels,
		meta:     meta,
	}
}

// createChannelRequest is the channel registration payload
type createChannelRequest struct {
	Name                  string            `json:"name"`
	NumberType            domain.NumberType `json:"numberType"`
	APIType               domain.APIType    `json:"apiType"`
	AccessToken           string            `json:"accessToken,omitempty"`
	PhoneNumberID         string            `json:"phoneNumberId,omitempty"`
	BusinessAccountID     string            `json:"businessAccountId,omitempty"`
	EvolutionInstanceName string            `json:"evolutionInstanceName,omitempty"`
	EvolutionPhoneNumber  string            `json:"evolutionPhoneNumber,omitempty"`
	VendedorID            string            `json:"vendedorId,omitempty"`
}

// HandleChannels handles GET and POST /api/whatsapp/numbers
func (h *ChannelHandler) HandleChannels(w http.ResponseWriter, r *http.Request) {
	if handlePreflight(w, r) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleList returns all channels. Access tokens and gateway keys are
// excluded by the model's JSON tags.
func (h *ChannelHandler) handleList(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channels.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list channels", nil)
		return
	}
	if channels == nil {
		channels = []domain.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

// handleCreate registers a new channel. Meta channels are verified against
// the upstream API first, capturing the display number and verified name.
func (h *ChannelHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}

	if msg := validateCreateRequest(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg, nil)
		return
	}

	ch := &domain.Channel{
		ID:         uuid.NewString(),
		Name:       req.Name,
		NumberType: req.NumberType,
		APIType:    req.APIType,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	if req.VendedorID != "" {
		ch.VendedorID = &req.VendedorID
	}

	switch req.APIType {
	case domain.APITypeMeta:
		info, err := h.meta.VerifyPhoneNumber(r.Context(), req.AccessToken, req.PhoneNumberID)
		if err != nil {
			var upstreamErr *domain.UpstreamError
			if errors.As(err, &upstreamErr) {
				writeError(w, http.StatusBadRequest, "Número Meta inválido ou token sem permissão", upstreamErr.Body)
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to verify phone number", nil)
			return
		}
		ch.AccessToken = req.AccessToken
		ch.PhoneNumberID = &req.PhoneNumberID
		if req.BusinessAccountID != "" {
			ch.BusinessAccountID = &req.BusinessAccountID
		}
		if info.DisplayPhoneNumber != "" {
			ch.PhoneDisplay = &info.DisplayPhoneNumber
		}
		if info.VerifiedName != "" {
			ch.VerifiedName = &info.VerifiedName
		}
	case domain.APITypeEvolution:
		ch.EvolutionInstanceName = &req.EvolutionInstanceName
		if req.EvolutionPhoneNumber != "" {
			ch.EvolutionPhoneNumber = &req.EvolutionPhoneNumber
		}
		status := "pending"
		ch.EvolutionStatus = &status
	}

	if err := h.channels.Create(r.Context(), ch); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create channel", nil)
		return
	}

	slog.Info("Channel registered",
		"channel_id", ch.ID,
		"name", ch.Name,
		"api_type", ch.APIType,
		"number_type", ch.NumberType,
	)
	writeJSON(w, http.StatusOK, ch)
}

// validateCreateRequest enforces the channel invariants: field groups
// match the api type, personal channels belong to a salesperson
func validateCreateRequest(req *createChannelRequest) string {
	if req.Name == "" {
		return "Missing required field: name"
	}

	switch req.NumberType {
	case domain.NumberTypePrincipal:
		if req.VendedorID != "" {
			return "Principal numbers cannot be bound to a vendedor"
		}
	case domain.NumberTypePersonal:
		if req.VendedorID == "" {
			return "Personal numbers require vendedorId"
		}
	default:
		return "Invalid numberType: must be principal or pessoal"
	}

	switch req.APIType {
	case domain.APITypeMeta:
		if req.AccessToken == "" || req.PhoneNumberID == "" {
			return "Meta numbers require accessToken and phoneNumberId"
		}
		if req.EvolutionInstanceName != "" {
			return "Meta numbers cannot carry Evolution fields"
		}
	case domain.APITypeEvolution:
		if req.EvolutionInstanceName == "" {
			return "Evolution numbers require evolutionInstanceName"
		}
		if req.AccessToken != "" || req.PhoneNumberID != "" {
			return "Evolution numbers cannot carry Meta fields"
		}
	default:
		return "Invalid apiType: must be meta or evolution"
	}

	return ""
}
