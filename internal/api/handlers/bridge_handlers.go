package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
	"github.com/rail-service/usdc-bridge/internal/domain/services/fees"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

// ChainCatalog exposes the registry
type ChainCatalog interface {
	Get(id entities.ChainID) (entities.ChainConfig, error)
	List() []entities.ChainConfig
}

type RouteSelector interface {
	Select(source, destination entities.ChainID) (entities.TransferMethod, error)
}

type FeeQuoter interface {
	Quote(ctx context.Context, source, destination entities.ChainID, amount usdc.Amount, method entities.TransferMethod) (entities.FeeBreakdown, error)
}

// BridgeHandlers serves the read-only chain, route and quote endpoints
type BridgeHandlers struct {
	chains   ChainCatalog
	selector RouteSelector
	quoter   FeeQuoter
}

func NewBridgeHandlers(chains ChainCatalog, selector RouteSelector, quoter FeeQuoter) *BridgeHandlers {
	return &BridgeHandlers{chains: chains, selector: selector, quoter: quoter}
}

// ListChains handles GET /api/v1/chains
func (h *BridgeHandlers) ListChains(c *gin.Context) {
	list := h.chains.List()
	c.JSON(http.StatusOK, gin.H{
		"chains": list,
		"count":  len(list),
	})
}

// GetChain handles GET /api/v1/chains/:chainId
func (h *BridgeHandlers) GetChain(c *gin.Context) {
	chain, err := h.chains.Get(entities.ChainID(c.Param("chainId")))
	if err != nil {
		respondError(c, http.StatusNotFound, domainerrors.CodeUnknownChain, err.Error(), domainerrors.GetErrorDetails(err))
		return
	}
	c.JSON(http.StatusOK, chain)
}

// GetRoute handles GET /api/v1/routes?source=&destination=
func (h *BridgeHandlers) GetRoute(c *gin.Context) {
	source := entities.ChainID(c.Query("source"))
	destination := entities.ChainID(c.Query("destination"))
	if source == "" || destination == "" {
		SendValidationError(c, "source and destination are required", map[string]string{
			"source":      string(source),
			"destination": string(destination),
		})
		return
	}
	if source == destination {
		respondDomainError(c, domainerrors.SameChainTransfer(string(source)))
		return
	}

	method, err := h.selector.Select(source, destination)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, entities.RouteResponse{
		SourceChain:      source,
		DestinationChain: destination,
		Method:           method,
	})
}

// CreateQuote handles POST /api/v1/quotes
func (h *BridgeHandlers) CreateQuote(c *gin.Context) {
	var req entities.QuoteRequest
	if !bindJSON(c, &req) {
		return
	}
	source := entities.ChainID(req.SourceChain)
	destination := entities.ChainID(req.DestinationChain)
	if source == destination {
		respondDomainError(c, domainerrors.SameChainTransfer(req.SourceChain))
		return
	}

	amount, err := fees.ParseAmount(req.Amount)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	method, err := h.selector.Select(source, destination)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	breakdown, err := h.quoter.Quote(c.Request.Context(), source, destination, amount, method)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, entities.QuoteResponse{
		SourceChain:      source,
		DestinationChain: destination,
		Amount:           amount.String(),
		Method:           method,
		Fees:             breakdown,
	})
}
