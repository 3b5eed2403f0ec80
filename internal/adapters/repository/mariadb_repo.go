// Package repository implements data persistence adapters
// Following Hexagonal Architecture: Adapters implement ports defined in core
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"dealerchat/internal/core/domain"
	"dealerchat/internal/core/ports"
)

// Ensure the MariaDB adapters implement the required interfaces
var (
	_ ports.ChannelRegistry         = (*MariaDBRepository)(nil)
	_ ports.GatewayConfigRepository = (*MariaDBRepository)(nil)
	_ ports.VendorConfigRepository  = (*MariaDBRepository)(nil)
	_ ports.AtendimentoRepository   = (*AtendimentoRepo)(nil)
)

// MariaDBRepository implements persistence operations for MariaDB
type MariaDBRepository struct {
	db *sql.DB
}

// NewMariaDBRepository creates a new MariaDB repository instance
func NewMariaDBRepository(db *sql.DB) *MariaDBRepository {
	return &MariaDBRepository{
		db: db,
	}
}

const channelColumns = `
	id, name, number_type, api_type, is_active,
	COALESCE(access_token, ''), phone_number_id, business_account_id,
	verified_name, phone_display,
	evolution_instance_name, evolution_phone_number, evolution_status,
	vendedor_id, created_at
`

// ============================================================================
// ChannelRegistry Implementation
// ============================================================================

// FindByID retrieves an active channel by id.
// Returns (nil, nil) when the channel is missing or inactive.
func (r *MariaDBRepository) FindByID(ctx context.Context, id string) (*domain.Channel, error) {
	query := `SELECT ` + channelColumns + `
		FROM whatsapp_numbers
		WHERE id = ? AND is_active = TRUE
		LIMIT 1`

	return r.scanChannel(r.db.QueryRowContext(ctx, query, id), "find channel by id")
}

// FindActivePersonalByVendor retrieves the most recently created active
// personal channel owned by the given salesperson
func (r *MariaDBRepository) FindActivePersonalByVendor(ctx context.Context, vendorID string) (*domain.Channel, error) {
	query := `SELECT ` + channelColumns + `
		FROM whatsapp_numbers
		WHERE number_type = ? AND vendedor_id = ? AND is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, domain.NumberTypePersonal, vendorID)
	return r.scanChannel(row, "find personal channel")
}

// FindDefaultPrincipal retrieves the oldest created active principal channel
func (r *MariaDBRepository) FindDefaultPrincipal(ctx context.Context) (*domain.Channel, error) {
	query := `SELECT ` + channelColumns + `
		FROM whatsapp_numbers
		WHERE number_type = ? AND is_active = TRUE
		ORDER BY created_at ASC
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, domain.NumberTypePrincipal)
	return r.scanChannel(row, "find principal channel")
}

// FindByEvolutionInstance retrieves the active Evolution channel bound to
// the given instance name
func (r *MariaDBRepository) FindByEvolutionInstance(ctx context.Context, instanceName string) (*domain.Channel, error) {
	query := `SELECT ` + channelColumns + `
		FROM whatsapp_numbers
		WHERE api_type = ? AND evolution_instance_name = ? AND is_active = TRUE
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, domain.APITypeEvolution, instanceName)
	return r.scanChannel(row, "find channel by instance")
}

// List returns all channels ordered by creation time, for the admin surface
func (r *MariaDBRepository) List(ctx context.Context) ([]domain.Channel, error) {
	query := `SELECT ` + channelColumns + `
		FROM whatsapp_numbers
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Error("Failed to list channels", "error", err)
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := scanChannelFields(rows, &ch); err != nil {
			slog.Error("Failed to scan channel row", "error", err)
			continue
		}
		channels = append(channels, ch)
	}

	return channels, rows.Err()
}

// Create persists a new channel record
func (r *MariaDBRepository) Create(ctx context.Context, ch *domain.Channel) error {
	query := `
		INSERT INTO whatsapp_numbers (
			id, name, number_type, api_type, is_active,
			access_token, phone_number_id, business_account_id,
			verified_name, phone_display,
			evolution_instance_name, evolution_phone_number, evolution_status,
			vendedor_id, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		ch.ID,
		ch.Name,
		ch.NumberType,
		ch.APIType,
		ch.IsActive,
		nullableString(ch.AccessToken),
		ch.PhoneNumberID,
		ch.BusinessAccountID,
		ch.VerifiedName,
		ch.PhoneDisplay,
		ch.EvolutionInstanceName,
		ch.EvolutionPhoneNumber,
		ch.EvolutionStatus,
		ch.VendedorID,
		ch.CreatedAt,
	)

	if err != nil {
		slog.Error("Failed to create channel",
			"error", err,
			"name", ch.Name,
		)
		return fmt.Errorf("create channel: %w", err)
	}

	slog.Info("Channel created",
		"channel_id", ch.ID,
		"name", ch.Name,
		"api_type", ch.APIType,
	)

	return nil
}

// ============================================================================
// AtendimentoRepository Implementation
// ============================================================================

// AtendimentoRepo reads conversation threads from MariaDB.
// Separate from MariaDBRepository because both lookups go by id; it shares
// the same *sql.DB handle.
type AtendimentoRepo struct {
	db *sql.DB
}

// NewAtendimentoRepo creates a new atendimento repository instance
func NewAtendimentoRepo(db *sql.DB) *AtendimentoRepo {
	return &AtendimentoRepo{
		db: db,
	}
}

// FindByID retrieves the routing-relevant columns of a conversation
func (r *AtendimentoRepo) FindByID(ctx context.Context, id string) (*domain.Atendimento, error) {
	query := `
		SELECT id, whatsapp_number_id, number_type, source,
			   evolution_instance_name, vendedor_fixo_id
		FROM atendimentos
		WHERE id = ?
	`

	var at domain.Atendimento
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&at.ID,
		&at.WhatsAppNumberID,
		&at.NumberType,
		&at.Source,
		&at.EvolutionInstanceName,
		&at.VendedorFixoID,
	)

	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}

	if err != nil {
		slog.Error("Failed to get atendimento",
			"error", err,
			"atendimento_id", id,
		)
		return nil, fmt.Errorf("get atendimento: %w", err)
	}

	return &at, nil
}

// ============================================================================
// GatewayConfigRepository Implementation
// ============================================================================

// FindConnected retrieves the most recently created connected gateway row
func (r *MariaDBRepository) FindConnected(ctx context.Context) (*domain.GatewayConfig, error) {
	query := `
		SELECT id, api_url, api_key, is_connected, created_at
		FROM evolution_config
		WHERE is_connected = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`

	var gw domain.GatewayConfig
	err := r.db.QueryRowContext(ctx, query).Scan(
		&gw.ID,
		&gw.APIURL,
		&gw.APIKey,
		&gw.IsConnected,
		&gw.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil // No connected gateway
	}

	if err != nil {
		slog.Error("Failed to get gateway config", "error", err)
		return nil, fmt.Errorf("get gateway config: %w", err)
	}

	return &gw, nil
}

// MarkDisconnected flips is_connected off for a gateway row.
// Called by the watchdog after repeated connectivity failures.
func (r *MariaDBRepository) MarkDisconnected(ctx context.Context, id string) error {
	query := `
		UPDATE evolution_config
		SET is_connected = FALSE
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Error("Failed to mark gateway disconnected",
			"error", err,
			"gateway_id", id,
		)
		return fmt.Errorf("mark gateway disconnected: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		slog.Warn("No gateway config found to disconnect", "gateway_id", id)
	}

	return nil
}

// ============================================================================
// VendorConfigRepository Implementation
// ============================================================================

// FindEvolutionInstance returns a salesperson's legacy instance binding,
// or "" when none exists
func (r *MariaDBRepository) FindEvolutionInstance(ctx context.Context, vendorID string) (string, error) {
	query := `SELECT evolution_instance_name FROM config_vendedores WHERE usuario_id = ? LIMIT 1`

	var instance sql.NullString
	err := r.db.QueryRowContext(ctx, query, vendorID).Scan(&instance)

	if err == sql.ErrNoRows {
		return "", nil
	}

	if err != nil {
		slog.Error("Failed to get vendedor config",
			"error", err,
			"vendedor_id", vendorID,
		)
		return "", fmt.Errorf("get vendedor config: %w", err)
	}

	return instance.String, nil
}

// ============================================================================
// Scan helpers
// ============================================================================

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannelFields(row rowScanner, ch *domain.Channel) error {
	return row.Scan(
		&ch.ID,
		&ch.Name,
		&ch.NumberType,
		&ch.APIType,
		&ch.IsActive,
		&ch.AccessToken,
		&ch.PhoneNumberID,
		&ch.BusinessAccountID,
		&ch.VerifiedName,
		&ch.PhoneDisplay,
		&ch.EvolutionInstanceName,
		&ch.EvolutionPhoneNumber,
		&ch.EvolutionStatus,
		&ch.VendedorID,
		&ch.CreatedAt,
	)
}

func (r *MariaDBRepository) scanChannel(row *sql.Row, op string) (*domain.Channel, error) {
	var ch domain.Channel
	err := scanChannelFields(row, &ch)

	if err == sql.ErrNoRows {
		return nil, nil // Not found or inactive
	}

	if err != nil {
		slog.Error("Failed to scan channel", "error", err, "op", op)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &ch, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
