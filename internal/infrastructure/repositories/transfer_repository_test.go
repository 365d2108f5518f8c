package repositories

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

func newMockRepo(t *testing.T) (*TransferRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTransferRepository(sqlx.NewDb(db, "postgres")), mock
}

func sampleTransfer() *entities.TransferRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &entities.TransferRecord{
		ID:               uuid.New(),
		SourceChain:      entities.ChainEthereum,
		DestinationChain: entities.ChainBase,
		Amount:           usdc.MustParse("100"),
		Method:           entities.TransferMethodCCTP,
		Status:           entities.TransferStatusInitiating,
		SignerAddress:    "0xsigner",
		RecipientAddress: "0xrecipient",
		EstimatedFee: entities.FeeBreakdown{
			SourceChainFee:      usdc.MustParse("0.001"),
			DestinationChainFee: usdc.MustParse("0.0005"),
			BridgeFee:           usdc.MustParse("0.0001"),
			TotalFee:            usdc.MustParse("0.0016"),
			FinalAmount:         usdc.MustParse("99.9984"),
		},
		FinalAmount: usdc.MustParse("99.9984"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func transferRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "source_chain", "destination_chain", "amount", "method", "status",
		"signer_address", "recipient_address", "source_tx_hash", "attestation", "redeem_tx_hash",
		"source_chain_fee", "destination_chain_fee", "bridge_fee", "total_fee", "final_amount",
		"failure_reason", "created_at", "updated_at", "submitted_at", "last_polled_at",
	})
}

func TestTransferRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleTransfer()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transfers")).
		WithArgs(
			rec.ID.String(), "ethereum", "base", "100", "cctp", "initiating",
			"0xsigner", "0xrecipient", nil, nil, nil,
			"0.001", "0.0005", "0.0001", "0.0016", "99.9984",
			nil, rec.CreatedAt, rec.UpdatedAt, nil, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleTransfer()
	submitted := rec.CreatedAt.Add(time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transfers WHERE id = $1")).
		WithArgs(rec.ID).
		WillReturnRows(transferRows().AddRow(
			rec.ID.String(), "ethereum", "base", "100.000000", "cctp", "pending",
			"0xsigner", "0xrecipient", "0xburn", nil, nil,
			"0.001000", "0.000500", "0.000100", "0.001600", "99.998400",
			nil, rec.CreatedAt, rec.UpdatedAt, submitted, nil,
		))

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TransferStatusPending, got.Status)
	assert.Equal(t, "0xburn", got.SourceTxHash)
	assert.Empty(t, got.Attestation)
	assert.Equal(t, "99.9984", got.EstimatedFee.FinalAmount.String())
	assert.Equal(t, rec.Amount, got.Amount)
	require.NotNil(t, got.SubmittedAt)
	assert.Nil(t, got.LastPolledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM transfers WHERE id = $1")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domainerrors.ErrTransferNotFound)
	assert.True(t, domainerrors.IsNotFound(err))
}

func TestTransferRepository_Update(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleTransfer()
	rec.Status = entities.TransferStatusPending
	rec.SourceTxHash = "0xburn"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE transfers SET")).
		WithArgs(rec.ID, "pending", "0xburn", nil, nil, "99.9984", nil, rec.UpdatedAt, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), rec))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE transfers SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), rec), domainerrors.ErrTransferNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepository_MarkPolled(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE transfers SET last_polled_at = $2 WHERE id = $1")).
		WithArgs(id, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkPolled(context.Background(), id, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepository_ListByStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleTransfer()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = ANY($1)")).
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(transferRows().AddRow(
			rec.ID.String(), "ethereum", "base", "100", "cctp", "confirming",
			"0xsigner", "0xrecipient", "0xburn", "0xatt", nil,
			"0.001", "0.0005", "0.0001", "0.0016", "99.9984",
			nil, rec.CreatedAt, rec.UpdatedAt, nil, nil,
		))

	got, err := repo.ListByStatus(context.Background(), entities.ActiveTransferStatuses, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0xatt", got[0].Attestation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryTransferRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransferRepository()
	rec := sampleTransfer()

	require.NoError(t, repo.Create(ctx, rec))
	assert.ErrorIs(t, repo.Create(ctx, rec), domainerrors.ErrConflict)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	got.Status = entities.TransferStatusFailed

	again, _ := repo.GetByID(ctx, rec.ID)
	assert.Equal(t, entities.TransferStatusInitiating, again.Status, "returned records are copies")

	at := time.Now()
	require.NoError(t, repo.MarkPolled(ctx, rec.ID, at))
	again, _ = repo.GetByID(ctx, rec.ID)
	require.NotNil(t, again.LastPolledAt)
	assert.True(t, again.LastPolledAt.Equal(at))

	again.Status = entities.TransferStatusPending
	require.NoError(t, repo.Update(ctx, again))

	older := sampleTransfer()
	older.Status = entities.TransferStatusConfirming
	older.CreatedAt = rec.CreatedAt.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, older))

	done := sampleTransfer()
	done.Status = entities.TransferStatusCompleted
	require.NoError(t, repo.Create(ctx, done))

	active, err := repo.ListByStatus(ctx, entities.ActiveTransferStatuses, 0)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, older.ID, active[0].ID)

	limited, _ := repo.ListByStatus(ctx, entities.ActiveTransferStatuses, 1)
	assert.Len(t, limited, 1)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrTransferNotFound)
	assert.ErrorIs(t, repo.Update(ctx, sampleTransfer()), domainerrors.ErrTransferNotFound)
	assert.Equal(t, 3, repo.Len())
}
