package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
)

// TransferService is the orchestrator surface exposed over HTTP
type TransferService interface {
	Create(ctx context.Context, req entities.CreateTransferRequest) (*entities.TransferRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error)
	Poll(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error)
	Complete(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error)
	Fail(ctx context.Context, id uuid.UUID, reason string) (*entities.TransferRecord, error)
}

// TransferHandlers serves the transfer lifecycle endpoints
type TransferHandlers struct {
	service TransferService
	chains  ChainCatalog
}

func NewTransferHandlers(service TransferService, chains ChainCatalog) *TransferHandlers {
	return &TransferHandlers{service: service, chains: chains}
}

// CreateTransfer handles POST /api/v1/transfers
func (h *TransferHandlers) CreateTransfer(c *gin.Context) {
	var req entities.CreateTransferAPIRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.service.Create(c.Request.Context(), entities.CreateTransferRequest{
		SourceChain:      entities.ChainID(req.SourceChain),
		DestinationChain: entities.ChainID(req.DestinationChain),
		Amount:           req.Amount,
		SignerAddress:    req.SignerAddress,
		RecipientAddress: req.RecipientAddress,
	})
	if err != nil {
		// A rejected submission still leaves a failed record behind.
		if rec != nil {
			requestLogger(c).Warn("Transfer submission failed",
				"transfer_id", rec.ID,
				"error", err)
			details := map[string]interface{}{"transfer": h.response(rec)}
			for k, v := range domainerrors.GetErrorDetails(err) {
				details[k] = v
			}
			respondError(c, statusFor(err), domainerrors.GetErrorCode(err), err.Error(), details)
			return
		}
		respondDomainError(c, err)
		return
	}

	requestLogger(c).Info("Transfer submitted",
		"transfer_id", rec.ID,
		"method", rec.Method,
		"source_tx_hash", rec.SourceTxHash)
	c.JSON(http.StatusCreated, h.response(rec))
}

// GetTransfer handles GET /api/v1/transfers/:id
func (h *TransferHandlers) GetTransfer(c *gin.Context) {
	h.run(c, h.service.Get)
}

// PollTransfer handles POST /api/v1/transfers/:id/poll
func (h *TransferHandlers) PollTransfer(c *gin.Context) {
	h.run(c, h.service.Poll)
}

// CompleteTransfer handles POST /api/v1/transfers/:id/complete
func (h *TransferHandlers) CompleteTransfer(c *gin.Context) {
	h.run(c, h.service.Complete)
}

// FailTransfer handles POST /api/v1/transfers/:id/fail
func (h *TransferHandlers) FailTransfer(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req entities.FailTransferRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.service.Fail(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	requestLogger(c).Info("Transfer failed by operator", "transfer_id", id, "reason", req.Reason)
	c.JSON(http.StatusOK, h.response(rec))
}

func (h *TransferHandlers) run(c *gin.Context, op func(context.Context, uuid.UUID) (*entities.TransferRecord, error)) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	rec, err := op(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.response(rec))
}

// response adds explorer links for the recorded transactions.
func (h *TransferHandlers) response(rec *entities.TransferRecord) entities.TransferResponse {
	resp := entities.TransferResponse{TransferRecord: rec}
	if src, err := h.chains.Get(rec.SourceChain); err == nil {
		resp.SourceTxURL = src.TxURL(rec.SourceTxHash)
	}
	if dst, err := h.chains.Get(rec.DestinationChain); err == nil {
		resp.RedeemTxURL = dst.TxURL(rec.RedeemTxHash)
	}
	return resp
}
