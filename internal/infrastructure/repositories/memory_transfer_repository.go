package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
)

// MemoryTransferRepository keeps transfers in process memory. It is used when
// no database is configured and in tests. Records are copied in and out.
type MemoryTransferRepository struct {
	mu        sync.RWMutex
	transfers map[uuid.UUID]entities.TransferRecord
}

func NewMemoryTransferRepository() *MemoryTransferRepository {
	return &MemoryTransferRepository{transfers: make(map[uuid.UUID]entities.TransferRecord)}
}

func (r *MemoryTransferRepository) Create(_ context.Context, rec *entities.TransferRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transfers[rec.ID]; exists {
		return fmt.Errorf("%w: transfer %s already exists", domainerrors.ErrConflict, rec.ID)
	}
	r.transfers[rec.ID] = clone(*rec)
	return nil
}

func (r *MemoryTransferRepository) GetByID(_ context.Context, id uuid.UUID) (*entities.TransferRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.transfers[id]
	if !ok {
		return nil, domainerrors.TransferNotFound(id.String())
	}
	out := clone(rec)
	return &out, nil
}

func (r *MemoryTransferRepository) Update(_ context.Context, rec *entities.TransferRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transfers[rec.ID]; !ok {
		return domainerrors.TransferNotFound(rec.ID.String())
	}
	r.transfers[rec.ID] = clone(*rec)
	return nil
}

func (r *MemoryTransferRepository) MarkPolled(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.transfers[id]
	if !ok {
		return domainerrors.TransferNotFound(id.String())
	}
	rec.LastPolledAt = &at
	r.transfers[id] = rec
	return nil
}

func (r *MemoryTransferRepository) ListByStatus(_ context.Context, statuses []entities.TransferStatus, limit int) ([]*entities.TransferRecord, error) {
	want := make(map[entities.TransferStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}

	r.mu.RLock()
	out := make([]*entities.TransferRecord, 0)
	for _, rec := range r.transfers {
		if want[rec.Status] {
			c := clone(rec)
			out = append(out, &c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored transfers.
func (r *MemoryTransferRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.transfers)
}

func clone(rec entities.TransferRecord) entities.TransferRecord {
	if rec.SubmittedAt != nil {
		t := *rec.SubmittedAt
		rec.SubmittedAt = &t
	}
	if rec.LastPolledAt != nil {
		t := *rec.LastPolledAt
		rec.LastPolledAt = &t
	}
	return rec
}
