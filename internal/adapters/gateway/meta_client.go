// Package gateway implements external API adapters
// Following Hexagonal Architecture: Outbound adapters for external services
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"dealerchat/internal/core/domain"
	"dealerchat/internal/core/ports"
)

const defaultMetaBaseURL = "https://graph.facebook.com/v18.0"

// Ensure MetaClient implements the transport port
var _ ports.MetaTransport = (*MetaClient)(nil)

// MetaClient handles communication with the Meta WhatsApp Cloud API
type MetaClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewMetaClient creates a new Meta Cloud API client
func NewMetaClient() *MetaClient {
	return &MetaClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: defaultMetaBaseURL,
	}
}

// metaMessage is the typed message envelope of the Cloud API.
// Exactly one of the payload objects is set, matching Type.
type metaMessage struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *metaText     `json:"text,omitempty"`
	Audio            *metaAudio    `json:"audio,omitempty"`
	Image            *metaMedia    `json:"image,omitempty"`
	Document         *metaDocument `json:"document,omitempty"`
}

type metaText struct {
	Body string `json:"body"`
}

type metaAudio struct {
	Link string `json:"link"`
	// Voice marks the audio as a push-to-talk voice note rather than a
	// playable file attachment
	Voice bool `json:"voice"`
}

type metaMedia struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type metaDocument struct {
	Link     string `json:"link"`
	Filename string `json:"filename"`
	Caption  string `json:"caption,omitempty"`
}

// metaSendResponse is the success response of the messages endpoint
type metaSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// Send performs one authenticated call to the messages endpoint for the
// given phone-number-id and returns the provider message id
func (c *MetaClient) Send(ctx context.Context, req *domain.SendRequest, creds domain.MetaCredentials) (string, error) {
	payload := buildMetaMessage(req)

	slog.Info("Sending message via Meta API",
		"to", req.To,
		"type", payload.Type,
	)

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, creds.PhoneNumberID)
	body, err := c.post(ctx, url, creds.AccessToken, payload)
	if err != nil {
		return "", err
	}

	var sendResp metaSendResponse
	if err := json.Unmarshal(body, &sendResp); err != nil {
		return "", fmt.Errorf("parse meta response: %w", err)
	}
	if len(sendResp.Messages) == 0 {
		return "", fmt.Errorf("meta response contains no messages")
	}

	return sendResp.Messages[0].ID, nil
}

// VerifyPhoneNumber fetches display number and verified name for a
// phone-number-id. Called when a new Meta channel is registered.
func (c *MetaClient) VerifyPhoneNumber(ctx context.Context, accessToken, phoneNumberID string) (*domain.PhoneNumberInfo, error) {
	url := fmt.Sprintf("%s/%s?fields=display_phone_number,verified_name", c.baseURL, phoneNumberID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: domain.APITypeMeta, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{
			Provider:   domain.APITypeMeta,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	var info domain.PhoneNumberInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse phone number info: %w", err)
	}
	return &info, nil
}

// post sends a JSON payload with bearer auth and returns the raw success
// body. Non-2xx responses surface as UpstreamError with the provider's
// body verbatim; the caller needs the diagnostic.
func (c *MetaClient) post(ctx context.Context, url, accessToken string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: domain.APITypeMeta, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Meta API error",
			"status_code", resp.StatusCode,
			"body", string(body),
		)
		return nil, &domain.UpstreamError{
			Provider:   domain.APITypeMeta,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return body, nil
}

// buildMetaMessage maps the payload variant to the Cloud API envelope
func buildMetaMessage(req *domain.SendRequest) *metaMessage {
	msg := &metaMessage{
		MessagingProduct: "whatsapp",
		To:               req.To,
	}

	switch req.Kind() {
	case domain.MessageKindAudio:
		msg.Type = "audio"
		msg.Audio = &metaAudio{Link: req.AudioURL, Voice: true}
	case domain.MessageKindImage:
		msg.Type = "image"
		msg.Image = &metaMedia{Link: req.MediaURL, Caption: req.Caption}
	case domain.MessageKindDocument:
		filename := req.Filename
		if filename == "" {
			filename = "document"
		}
		msg.Type = "document"
		msg.Document = &metaDocument{
			Link:     req.MediaURL,
			Filename: filename,
			Caption:  req.Caption,
		}
	default:
		msg.Type = "text"
		msg.Text = &metaText{Body: req.Message}
	}

	return msg
}
