package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

const transferColumns = `
	id, source_chain, destination_chain, amount, method, status,
	signer_address, recipient_address, source_tx_hash, attestation, redeem_tx_hash,
	source_chain_fee, destination_chain_fee, bridge_fee, total_fee, final_amount,
	failure_reason, created_at, updated_at, submitted_at, last_polled_at`

// transferRow mirrors the transfers table
type transferRow struct {
	ID                  uuid.UUID               `db:"id"`
	SourceChain         entities.ChainID        `db:"source_chain"`
	DestinationChain    entities.ChainID        `db:"destination_chain"`
	Amount              usdc.Amount             `db:"amount"`
	Method              entities.TransferMethod `db:"method"`
	Status              entities.TransferStatus `db:"status"`
	SignerAddress       string                  `db:"signer_address"`
	RecipientAddress    string                  `db:"recipient_address"`
	SourceTxHash        sql.NullString          `db:"source_tx_hash"`
	Attestation         sql.NullString          `db:"attestation"`
	RedeemTxHash        sql.NullString          `db:"redeem_tx_hash"`
	SourceChainFee      usdc.Amount             `db:"source_chain_fee"`
	DestinationChainFee usdc.Amount             `db:"destination_chain_fee"`
	BridgeFee           usdc.Amount             `db:"bridge_fee"`
	TotalFee            usdc.Amount             `db:"total_fee"`
	FinalAmount         usdc.Amount             `db:"final_amount"`
	FailureReason       sql.NullString          `db:"failure_reason"`
	CreatedAt           time.Time               `db:"created_at"`
	UpdatedAt           time.Time               `db:"updated_at"`
	SubmittedAt         sql.NullTime            `db:"submitted_at"`
	LastPolledAt        sql.NullTime            `db:"last_polled_at"`
}

func (r transferRow) toEntity() *entities.TransferRecord {
	rec := &entities.TransferRecord{
		ID:               r.ID,
		SourceChain:      r.SourceChain,
		DestinationChain: r.DestinationChain,
		Amount:           r.Amount,
		Method:           r.Method,
		Status:           r.Status,
		SignerAddress:    r.SignerAddress,
		RecipientAddress: r.RecipientAddress,
		SourceTxHash:     r.SourceTxHash.String,
		Attestation:      r.Attestation.String,
		RedeemTxHash:     r.RedeemTxHash.String,
		EstimatedFee: entities.FeeBreakdown{
			SourceChainFee:      r.SourceChainFee,
			DestinationChainFee: r.DestinationChainFee,
			BridgeFee:           r.BridgeFee,
			TotalFee:            r.TotalFee,
		},
		FinalAmount:   r.FinalAmount,
		FailureReason: r.FailureReason.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if final, err := r.Amount.Sub(r.TotalFee); err == nil {
		rec.EstimatedFee.FinalAmount = final
	}
	if r.SubmittedAt.Valid {
		t := r.SubmittedAt.Time
		rec.SubmittedAt = &t
	}
	if r.LastPolledAt.Valid {
		t := r.LastPolledAt.Time
		rec.LastPolledAt = &t
	}
	return rec
}

// TransferRepository stores transfer records in Postgres
type TransferRepository struct {
	db *sqlx.DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *sqlx.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) Create(ctx context.Context, rec *entities.TransferRecord) error {
	query := `INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	fb := rec.EstimatedFee
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.SourceChain, rec.DestinationChain, rec.Amount, rec.Method, rec.Status,
		rec.SignerAddress, rec.RecipientAddress, nullString(rec.SourceTxHash),
		nullString(rec.Attestation), nullString(rec.RedeemTxHash),
		fb.SourceChainFee, fb.DestinationChainFee, fb.BridgeFee, fb.TotalFee, rec.FinalAmount,
		nullString(rec.FailureReason), rec.CreatedAt, rec.UpdatedAt,
		nullTime(rec.SubmittedAt), nullTime(rec.LastPolledAt),
	)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error) {
	var row transferRow
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.TransferNotFound(id.String())
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return row.toEntity(), nil
}

// Update writes every mutable column of rec.
func (r *TransferRepository) Update(ctx context.Context, rec *entities.TransferRecord) error {
	query := `
		UPDATE transfers SET
			status = $2, source_tx_hash = $3, attestation = $4, redeem_tx_hash = $5,
			final_amount = $6, failure_reason = $7, updated_at = $8,
			submitted_at = $9, last_polled_at = $10
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Status, nullString(rec.SourceTxHash), nullString(rec.Attestation),
		nullString(rec.RedeemTxHash), rec.FinalAmount, nullString(rec.FailureReason),
		rec.UpdatedAt, nullTime(rec.SubmittedAt), nullTime(rec.LastPolledAt),
	)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	return expectOneRow(res, rec.ID)
}

func (r *TransferRepository) MarkPolled(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transfers SET last_polled_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark transfer polled: %w", err)
	}
	return expectOneRow(res, id)
}

// ListByStatus returns the oldest transfers in any of the given statuses.
func (r *TransferRepository) ListByStatus(ctx context.Context, statuses []entities.TransferStatus, limit int) ([]*entities.TransferRecord, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	var rows []transferRow
	query := `SELECT ` + transferColumns + ` FROM transfers
		WHERE status = ANY($1)
		ORDER BY created_at ASC
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(names), limit); err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}

	out := make([]*entities.TransferRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func expectOneRow(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerrors.TransferNotFound(id.String())
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
