package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealerchat/internal/core/domain"
)

// capturedRequest records what the fake upstream received
type capturedRequest struct {
	Path    string
	Headers http.Header
	Body    map[string]any
}

// newMetaTestServer runs a fake Cloud API endpoint and returns a client
// pointed at it
func newMetaTestServer(t *testing.T, status int, response string) (*MetaClient, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.Headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		if len(body) > 0 {
			_ = json.Unmarshal(body, &captured.Body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return &MetaClient{httpClient: srv.Client(), baseURL: srv.URL}, captured
}

func testCreds() domain.MetaCredentials {
	return domain.MetaCredentials{AccessToken: "test-token", PhoneNumberID: "phone-1"}
}

const metaSuccessBody = `{"messages":[{"id":"wamid.ABC"}]}`

func TestMetaSend_Text(t *testing.T) {
	client, captured := newMetaTestServer(t, http.StatusOK, metaSuccessBody)

	id, err := client.Send(context.Background(), &domain.SendRequest{
		To:      "5511999990000",
		Message: "hello there",
	}, testCreds())

	require.NoError(t, err)
	assert.Equal(t, "wamid.ABC", id)
	assert.Equal(t, "/phone-1/messages", captured.Path)
	assert.Equal(t, "Bearer test-token", captured.Headers.Get("Authorization"))

	assert.Equal(t, "whatsapp", captured.Body["messaging_product"])
	assert.Equal(t, "text", captured.Body["type"])
	text := captured.Body["text"].(map[string]any)
	assert.Equal(t, "hello there", text["body"])
}

// Audio is always a voice note, never a playable file attachment
func TestMetaSend_AudioIsVoiceNote(t *testing.T) {
	client, captured := newMetaTestServer(t, http.StatusOK, metaSuccessBody)

	_, err := client.Send(context.Background(), &domain.SendRequest{
		To:       "5511999990000",
		AudioURL: "https://cdn/audio.ogg",
	}, testCreds())

	require.NoError(t, err)
	assert.Equal(t, "audio", captured.Body["type"])
	audio := captured.Body["audio"].(map[string]any)
	assert.Equal(t, "https://cdn/audio.ogg", audio["link"])
	assert.Equal(t, true, audio["voice"])
}

func TestMetaSend_ImageWithCaption(t *testing.T) {
	client, captured := newMetaTestServer(t, http.StatusOK, metaSuccessBody)

	_, err := client.Send(context.Background(), &domain.SendRequest{
		To:        "5511999990000",
		MediaURL:  "https://cdn/photo.jpg",
		MediaType: "image",
		Caption:   "new arrival",
	}, testCreds())

	require.NoError(t, err)
	assert.Equal(t, "image", captured.Body["type"])
	image := captured.Body["image"].(map[string]any)
	assert.Equal(t, "https://cdn/photo.jpg", image["link"])
	assert.Equal(t, "new arrival", image["caption"])
}

func TestMetaSend_DocumentDefaultFilename(t *testing.T) {
	client, captured := newMetaTestServer(t, http.StatusOK, metaSuccessBody)

	_, err := client.Send(context.Background(), &domain.SendRequest{
		To:        "5511999990000",
		MediaURL:  "https://cdn/contract.pdf",
		MediaType: "document",
	}, testCreds())

	require.NoError(t, err)
	assert.Equal(t, "document", captured.Body["type"])
	doc := captured.Body["document"].(map[string]any)
	assert.Equal(t, "document", doc["filename"])
}

// The provider's error body must come back verbatim for diagnosis
func TestMetaSend_UpstreamErrorPassthrough(t *testing.T) {
	errBody := `{"error":{"message":"Invalid OAuth access token","code":190}}`
	client, _ := newMetaTestServer(t, http.StatusUnauthorized, errBody)

	_, err := client.Send(context.Background(), &domain.SendRequest{
		To:      "5511999990000",
		Message: "hi",
	}, testCreds())

	var upstreamErr *domain.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, domain.APITypeMeta, upstreamErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, upstreamErr.StatusCode)
	assert.JSONEq(t, errBody, string(upstreamErr.Body))
}

func TestMetaVerifyPhoneNumber(t *testing.T) {
	client, captured := newMetaTestServer(t, http.StatusOK,
		`{"display_phone_number":"+55 11 99999-0000","verified_name":"Concessionária Silva"}`)

	info, err := client.VerifyPhoneNumber(context.Background(), "test-token", "phone-1")

	require.NoError(t, err)
	assert.Equal(t, "/phone-1", captured.Path)
	assert.Equal(t, "Bearer test-token", captured.Headers.Get("Authorization"))
	assert.Equal(t, "+55 11 99999-0000", info.DisplayPhoneNumber)
	assert.Equal(t, "Concessionária Silva", info.VerifiedName)
}
