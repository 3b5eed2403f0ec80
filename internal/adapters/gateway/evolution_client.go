package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dealerchat/internal/core/domain"
	"dealerchat/internal/core/ports"
)

// whatsappDomainSuffix is appended by the messaging layer to raw phone
// numbers; the gateway wants the bare number back
const whatsappDomainSuffix = "@s.whatsapp.net"

// Ensure EvolutionClient implements the transport port
var _ ports.EvolutionTransport = (*EvolutionClient)(nil)

// EvolutionClient handles communication with a self-hosted Evolution gateway
type EvolutionClient struct {
	httpClient *http.Client
}

// NewEvolutionClient creates a new Evolution gateway client
func NewEvolutionClient() *EvolutionClient {
	return &EvolutionClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type evolutionTextPayload struct {
	Number string `json:"number"`
	Text   string `json:"text"`
	Delay  int    `json:"delay"`
}

type evolutionAudioPayload struct {
	Number string `json:"number"`
	Audio  string `json:"audio"`
	Delay  int    `json:"delay"`
	// Encoding marks the audio as a push-to-talk voice note
	Encoding bool `json:"encoding"`
}

type evolutionMediaPayload struct {
	Number    string `json:"number"`
	MediaType string `json:"mediatype"`
	Media     string `json:"media"`
	Caption   string `json:"caption"`
	FileName  string `json:"fileName,omitempty"`
}

// evolutionSendResponse covers the id variants the gateway returns.
// The shape varies by message type.
type evolutionSendResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
	MessageID string `json:"messageId"`
	ID        string `json:"id"`
}

// evolutionInstance is one entry of the instance-listing endpoint
type evolutionInstance struct {
	Name         string `json:"name"`
	InstanceName string `json:"instanceName"`
}

// Send performs one call against the instance's message endpoint.
// The endpoint and payload shape depend on the payload variant.
func (c *EvolutionClient) Send(ctx context.Context, req *domain.SendRequest, instanceName string, gw *domain.GatewayConfig) (string, error) {
	number := normalizeNumber(req.To)
	apiURL := strings.TrimSuffix(gw.APIURL, "/")

	var endpoint string
	var payload any

	switch req.Kind() {
	case domain.MessageKindAudio:
		endpoint = fmt.Sprintf("%s/message/sendWhatsAppAudio/%s", apiURL, instanceName)
		payload = evolutionAudioPayload{
			Number:   number,
			Audio:    req.AudioURL,
			Delay:    1000,
			Encoding: true,
		}
	case domain.MessageKindImage:
		endpoint = fmt.Sprintf("%s/message/sendMedia/%s", apiURL, instanceName)
		payload = evolutionMediaPayload{
			Number:    number,
			MediaType: "image",
			Media:     req.MediaURL,
			Caption:   req.Caption,
		}
	case domain.MessageKindDocument:
		filename := req.Filename
		if filename == "" {
			filename = "document"
		}
		endpoint = fmt.Sprintf("%s/message/sendMedia/%s", apiURL, instanceName)
		payload = evolutionMediaPayload{
			Number:    number,
			MediaType: "document",
			Media:     req.MediaURL,
			Caption:   req.Caption,
			FileName:  filename,
		}
	default:
		endpoint = fmt.Sprintf("%s/message/sendText/%s", apiURL, instanceName)
		payload = evolutionTextPayload{
			Number: number,
			Text:   req.Message,
			Delay:  1000,
		}
	}

	slog.Info("Sending message via Evolution API",
		"endpoint", endpoint,
		"instance", instanceName,
	)

	body, err := c.post(ctx, endpoint, gw.APIKey, payload)
	if err != nil {
		return "", err
	}

	var sendResp evolutionSendResponse
	if err := json.Unmarshal(body, &sendResp); err != nil {
		return "", fmt.Errorf("parse evolution response: %w", err)
	}

	// First present id field wins; the gateway's shape varies by type
	switch {
	case sendResp.Key.ID != "":
		return sendResp.Key.ID, nil
	case sendResp.MessageID != "":
		return sendResp.MessageID, nil
	default:
		return sendResp.ID, nil
	}
}

// FetchFirstInstance discovers the first instance registered on the
// gateway. Compatibility path for channels created before instance binding
// was mandatory.
func (c *EvolutionClient) FetchFirstInstance(ctx context.Context, gw *domain.GatewayConfig) (string, error) {
	url := strings.TrimSuffix(gw.APIURL, "/") + "/instance/fetchInstances"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("apikey", gw.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &domain.UpstreamError{Provider: domain.APITypeEvolution, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.UpstreamError{
			Provider:   domain.APITypeEvolution,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	var instances []evolutionInstance
	if err := json.Unmarshal(body, &instances); err != nil {
		return "", fmt.Errorf("parse instances: %w", err)
	}

	for _, inst := range instances {
		if inst.Name != "" {
			return inst.Name, nil
		}
		if inst.InstanceName != "" {
			return inst.InstanceName, nil
		}
	}

	return "", domain.ErrNoInstanceAvailable
}

// post sends a JSON payload with the gateway key header and returns the
// raw success body
func (c *EvolutionClient) post(ctx context.Context, url, apiKey string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: domain.APITypeEvolution, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Evolution API error",
			"status_code", resp.StatusCode,
			"body", string(body),
		)
		return nil, &domain.UpstreamError{
			Provider:   domain.APITypeEvolution,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return body, nil
}

// normalizeNumber strips the messaging-domain suffix when the recipient
// arrives already suffixed
func normalizeNumber(to string) string {
	return strings.TrimSuffix(to, whatsappDomainSuffix)
}
