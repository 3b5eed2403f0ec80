// Package domain contains core business entities
// Following Hexagonal Architecture: These models are infrastructure-agnostic
package domain

import (
	"time"
)

// NumberType distinguishes the company-wide shared number from numbers
// bound to a single salesperson
type NumberType string

const (
	NumberTypePrincipal NumberType = "principal"
	NumberTypePersonal  NumberType = "pessoal"
)

// APIType identifies the upstream transport a channel speaks
type APIType string

const (
	APITypeMeta      APIType = "meta"
	APITypeEvolution APIType = "evolution"
)

// MessageKind classifies the outbound payload variant
type MessageKind string

const (
	MessageKindText     MessageKind = "text"
	MessageKindAudio    MessageKind = "audio"
	MessageKindImage    MessageKind = "image"
	MessageKindDocument MessageKind = "document"
)

// Channel represents a configured WhatsApp sending identity.
// Exactly one of the Meta/Evolution field groups is populated, matching
// APIType. A personal channel always has a non-nil VendedorID.
type Channel struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	NumberType NumberType `json:"number_type" db:"number_type"`
	APIType    APIType    `json:"api_type" db:"api_type"`
	IsActive   bool       `json:"is_active" db:"is_active"`

	// Meta Cloud API fields
	AccessToken       string  `json:"-" db:"access_token"` // Never expose in JSON
	PhoneNumberID     *string `json:"phone_number_id,omitempty" db:"phone_number_id"`
	BusinessAccountID *string `json:"business_account_id,omitempty" db:"business_account_id"`
	VerifiedName      *string `json:"verified_name,omitempty" db:"verified_name"`
	PhoneDisplay      *string `json:"phone_display,omitempty" db:"phone_display"`

	// Evolution gateway fields
	EvolutionInstanceName *string `json:"evolution_instance_name,omitempty" db:"evolution_instance_name"`
	EvolutionPhoneNumber  *string `json:"evolution_phone_number,omitempty" db:"evolution_phone_number"`
	EvolutionStatus       *string `json:"evolution_status,omitempty" db:"evolution_status"`

	VendedorID *string   `json:"vendedor_id,omitempty" db:"vendedor_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// MetaCredentials extracts the channel's Meta credential pair.
// Returns nil unless both fields are present.
func (c *Channel) MetaCredentials() *MetaCredentials {
	if c.APIType != APITypeMeta || c.PhoneNumberID == nil || c.AccessToken == "" {
		return nil
	}
	return &MetaCredentials{
		AccessToken:   c.AccessToken,
		PhoneNumberID: *c.PhoneNumberID,
	}
}

// InstanceName returns the bound Evolution instance name, empty when unbound
func (c *Channel) InstanceName() string {
	if c.EvolutionInstanceName == nil {
		return ""
	}
	return *c.EvolutionInstanceName
}

// MetaCredentials is a Meta Cloud API credential pair
type MetaCredentials struct {
	AccessToken   string
	PhoneNumberID string
}

// Atendimento represents a customer conversation thread.
// Only the routing-relevant columns are modeled here; the admin surfaces
// own the full record.
type Atendimento struct {
	ID                    string      `json:"id" db:"id"`
	WhatsAppNumberID      *string     `json:"whatsapp_number_id,omitempty" db:"whatsapp_number_id"`
	NumberType            *NumberType `json:"number_type,omitempty" db:"number_type"`
	Source                *string     `json:"source,omitempty" db:"source"`
	EvolutionInstanceName *string     `json:"evolution_instance_name,omitempty" db:"evolution_instance_name"`
	VendedorFixoID        *string     `json:"vendedor_fixo_id,omitempty" db:"vendedor_fixo_id"`
}

// GatewayConfig is the shared Evolution gateway connection record.
// At most one row is "connected" at a time; the most recently created
// connected row wins.
type GatewayConfig struct {
	ID          string    `json:"id" db:"id"`
	APIURL      string    `json:"api_url" db:"api_url"`
	APIKey      string    `json:"-" db:"api_key"`
	IsConnected bool      `json:"is_connected" db:"is_connected"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SendRequest is the unit of work submitted to the send core
type SendRequest struct {
	To       string `json:"to"`
	Message  string `json:"message,omitempty"`
	AudioURL string `json:"audioUrl,omitempty"`

	MediaType string `json:"mediaType,omitempty"` // "image" or "document"
	MediaURL  string `json:"mediaUrl,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Caption   string `json:"caption,omitempty"`

	AtendimentoID    string `json:"atendimentoId,omitempty"`
	WhatsAppNumberID string `json:"whatsappNumberId,omitempty"`
}

// Validate checks the request shape: a recipient plus at least one payload
func (r *SendRequest) Validate() error {
	if r.To == "" || (r.Message == "" && r.AudioURL == "" && r.MediaURL == "") {
		return &ValidationError{
			Message: "Missing required fields: to and (message, audioUrl, or mediaUrl)",
		}
	}
	return nil
}

// Kind classifies the payload. Audio wins over media, media over text,
// matching the upstream dispatch order.
func (r *SendRequest) Kind() MessageKind {
	switch {
	case r.AudioURL != "":
		return MessageKindAudio
	case r.MediaURL != "" && r.MediaType == "image":
		return MessageKindImage
	case r.MediaURL != "" && r.MediaType == "document":
		return MessageKindDocument
	default:
		return MessageKindText
	}
}

// Resolution is the outcome of the channel resolution chain.
// Channel is nil on the legacy fallback tier.
type Resolution struct {
	Channel *Channel
	APIType APIType

	// Meta is set when APIType == meta
	Meta *MetaCredentials

	// InstanceName is set when APIType == evolution; empty means the
	// adapter must discover one from the gateway
	InstanceName string

	// Legacy marks the environment/gateway compatibility tier
	Legacy bool
}

// NumberType returns the resolved channel's number type, empty on legacy
func (r *Resolution) NumberType() NumberType {
	if r.Channel == nil {
		return ""
	}
	return r.Channel.NumberType
}

// SendResult is the normalized outcome of a successful send
type SendResult struct {
	MessageID  string     `json:"messageId"`
	Source     APIType    `json:"source"`
	NumberType NumberType `json:"numberType,omitempty"`
}

// PhoneNumberInfo is the Meta phone-number verification result,
// captured at channel creation time
type PhoneNumberInfo struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	VerifiedName       string `json:"verified_name"`
}

// DeliveryEvent records a message handed to an upstream transport.
// Published to the event broker after each successful send.
type DeliveryEvent struct {
	EventID       string      `json:"event_id"`
	AtendimentoID string      `json:"atendimento_id,omitempty"`
	ChannelID     string      `json:"channel_id,omitempty"`
	Source        APIType     `json:"source"`
	NumberType    NumberType  `json:"number_type,omitempty"`
	MessageID     string      `json:"message_id"`
	To            string      `json:"to"`
	Kind          MessageKind `json:"kind"`
	SentAt        time.Time   `json:"sent_at"`
}
