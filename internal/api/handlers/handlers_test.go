package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
	"github.com/rail-service/usdc-bridge/internal/domain/services/chains"
	"github.com/rail-service/usdc-bridge/internal/domain/services/fees"
	"github.com/rail-service/usdc-bridge/internal/domain/services/routing"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/chaincatalog"
	"github.com/rail-service/usdc-bridge/pkg/logger"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) result(args mock.Arguments) (*entities.TransferRecord, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TransferRecord), args.Error(1)
}

func (m *MockTransferService) Create(ctx context.Context, req entities.CreateTransferRequest) (*entities.TransferRecord, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockTransferService) Get(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockTransferService) Poll(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockTransferService) Complete(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockTransferService) Fail(ctx context.Context, id uuid.UUID, reason string) (*entities.TransferRecord, error) {
	return m.result(m.Called(ctx, id, reason))
}

type fixture struct {
	router  *gin.Engine
	service *MockTransferService
}

func setup(t *testing.T) fixture {
	t.Helper()
	reg, err := chains.NewRegistry(chaincatalog.Default())
	require.NoError(t, err)
	estimator, err := fees.NewEstimator(reg, fees.DefaultSchedule(), nil, zap.NewNop())
	require.NoError(t, err)

	svc := new(MockTransferService)
	bridge := NewBridgeHandlers(reg, routing.NewSelector(reg), estimator)
	transfers := NewTransferHandlers(svc, reg)
	health := NewHealthHandler(map[string]ReadinessCheck{
		"ok": func(context.Context) error { return nil },
	}, logger.NewNop(), "test")

	r := gin.New()
	r.GET("/health", health.Liveness)
	r.GET("/ready", health.Readiness)
	r.GET("/api/v1/chains", bridge.ListChains)
	r.GET("/api/v1/chains/:chainId", bridge.GetChain)
	r.GET("/api/v1/routes", bridge.GetRoute)
	r.POST("/api/v1/quotes", bridge.CreateQuote)
	r.POST("/api/v1/transfers", transfers.CreateTransfer)
	r.GET("/api/v1/transfers/:id", transfers.GetTransfer)
	r.POST("/api/v1/transfers/:id/poll", transfers.PollTransfer)
	r.POST("/api/v1/transfers/:id/complete", transfers.CompleteTransfer)
	r.POST("/api/v1/transfers/:id/fail", transfers.FailTransfer)
	return fixture{router: r, service: svc}
}

func (f fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestListChains(t *testing.T) {
	f := setup(t)
	w := f.do(http.MethodGet, "/api/v1/chains", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Chains []entities.ChainConfig `json:"chains"`
		Count  int                    `json:"count"`
	}
	decode(t, w, &body)
	assert.Equal(t, 8, body.Count)
	assert.Equal(t, entities.ChainEthereum, body.Chains[0].ID)
}

func TestGetChain(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/api/v1/chains/base", "")
	require.Equal(t, http.StatusOK, w.Code)
	var chain entities.ChainConfig
	decode(t, w, &chain)
	assert.Equal(t, "Base", chain.Name)

	w = f.do(http.MethodGet, "/api/v1/chains/fantom", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), domainerrors.CodeUnknownChain)
}

func TestGetRoute(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name   string
		query  string
		status int
		method entities.TransferMethod
		code   string
	}{
		{"cctp pair", "source=ethereum&destination=base", http.StatusOK, entities.TransferMethodCCTP, ""},
		{"wormhole pair", "source=ethereum&destination=bsc", http.StatusOK, entities.TransferMethodWormhole, ""},
		{"same chain", "source=base&destination=base", http.StatusBadRequest, "", domainerrors.CodeSameChainTransfer},
		{"unknown chain", "source=ethereum&destination=fantom", http.StatusBadRequest, "", domainerrors.CodeUnknownChain},
		{"missing", "source=ethereum", http.StatusBadRequest, "", ErrCodeValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodGet, "/api/v1/routes?"+tt.query, "")
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.method != "" {
				var resp entities.RouteResponse
				decode(t, w, &resp)
				assert.Equal(t, tt.method, resp.Method)
				return
			}
			var resp entities.ErrorResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestCreateQuote(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodPost, "/api/v1/quotes", `{"source_chain":"ethereum","destination_chain":"base","amount":"100"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var quote entities.QuoteResponse
	decode(t, w, &quote)
	assert.Equal(t, entities.TransferMethodCCTP, quote.Method)
	assert.Equal(t, "0.0016", quote.Fees.TotalFee.String())
	assert.Equal(t, "99.9984", quote.Fees.FinalAmount.String())
}

func TestCreateQuote_Errors(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed", `{"source_chain":`, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"missing amount", `{"source_chain":"ethereum","destination_chain":"base"}`, http.StatusBadRequest, ErrCodeValidationError},
		{"bad amount", `{"source_chain":"ethereum","destination_chain":"base","amount":"ten"}`, http.StatusBadRequest, domainerrors.CodeInvalidAmount},
		{"too small", `{"source_chain":"ethereum","destination_chain":"base","amount":"0.001"}`, http.StatusUnprocessableEntity, domainerrors.CodeInsufficientAmount},
		{"same chain", `{"source_chain":"base","destination_chain":"base","amount":"1"}`, http.StatusBadRequest, domainerrors.CodeSameChainTransfer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/v1/quotes", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			var resp entities.ErrorResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func pendingRecord() *entities.TransferRecord {
	return &entities.TransferRecord{
		ID:               uuid.New(),
		SourceChain:      entities.ChainEthereum,
		DestinationChain: entities.ChainBase,
		Amount:           usdc.MustParse("100"),
		Method:           entities.TransferMethodCCTP,
		Status:           entities.TransferStatusPending,
		SignerAddress:    "0xsigner",
		RecipientAddress: "0xsigner",
		SourceTxHash:     "0xburn",
		FinalAmount:      usdc.MustParse("99.9984"),
	}
}

func TestCreateTransfer(t *testing.T) {
	f := setup(t)
	rec := pendingRecord()
	f.service.On("Create", mock.Anything, entities.CreateTransferRequest{
		SourceChain:      entities.ChainEthereum,
		DestinationChain: entities.ChainBase,
		Amount:           "100",
		SignerAddress:    "0xsigner",
	}).Return(rec, nil)

	w := f.do(http.MethodPost, "/api/v1/transfers",
		`{"source_chain":"ethereum","destination_chain":"base","amount":"100","signer_address":"0xsigner"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		ID          uuid.UUID               `json:"id"`
		Status      entities.TransferStatus `json:"status"`
		SourceTxURL string                  `json:"source_tx_url"`
	}
	decode(t, w, &resp)
	assert.Equal(t, rec.ID, resp.ID)
	assert.Equal(t, entities.TransferStatusPending, resp.Status)
	assert.Equal(t, "https://etherscan.io/tx/0xburn", resp.SourceTxURL)
	f.service.AssertExpectations(t)
}

func TestCreateTransfer_SubmissionFailed(t *testing.T) {
	f := setup(t)
	failed := pendingRecord()
	failed.Status = entities.TransferStatusFailed
	failed.SourceTxHash = ""
	failed.FailureReason = "source submission failed: relay offline"

	f.service.On("Create", mock.Anything, mock.Anything).
		Return(failed, domainerrors.SubmissionError("source", errors.New("relay offline")))

	w := f.do(http.MethodPost, "/api/v1/transfers", `{"source_chain":"ethereum","destination_chain":"base","amount":"100"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp entities.ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, domainerrors.CodeSubmissionError, resp.Code)
	transfer, ok := resp.Details["transfer"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "failed", transfer["status"])
	assert.Equal(t, "source", resp.Details["stage"])
}

func TestCreateTransfer_ValidationError(t *testing.T) {
	f := setup(t)
	f.service.On("Create", mock.Anything, mock.Anything).Return(nil, domainerrors.UnknownChain("fantom"))

	w := f.do(http.MethodPost, "/api/v1/transfers", `{"source_chain":"fantom","destination_chain":"base","amount":"100"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domainerrors.CodeUnknownChain)
}

func TestTransferLifecycleErrors(t *testing.T) {
	f := setup(t)
	id := uuid.New()

	f.service.On("Get", mock.Anything, id).Return(nil, domainerrors.TransferNotFound(id.String()))
	f.service.On("Poll", mock.Anything, id).
		Return(nil, domainerrors.ConfirmationTimeout("ethereum", "0xburn", context.DeadlineExceeded))
	f.service.On("Complete", mock.Anything, id).Return(nil, domainerrors.NotReady("attestation not yet available"))
	f.service.On("Fail", mock.Anything, id, "operator abort").
		Return(nil, domainerrors.InvalidTransition("completed", "failed"))

	tests := []struct {
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{http.MethodGet, "/api/v1/transfers/" + id.String(), "", http.StatusNotFound, domainerrors.CodeTransferNotFound},
		{http.MethodPost, "/api/v1/transfers/" + id.String() + "/poll", "", http.StatusGatewayTimeout, domainerrors.CodeConfirmationTimeout},
		{http.MethodPost, "/api/v1/transfers/" + id.String() + "/complete", "", http.StatusConflict, domainerrors.CodeNotReady},
		{http.MethodPost, "/api/v1/transfers/" + id.String() + "/fail", `{"reason":"operator abort"}`, http.StatusConflict, domainerrors.CodeInvalidTransition},
		{http.MethodGet, "/api/v1/transfers/not-a-uuid", "", http.StatusBadRequest, ErrCodeInvalidID},
		{http.MethodPost, "/api/v1/transfers/" + id.String() + "/fail", `{}`, http.StatusBadRequest, ErrCodeValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := f.do(tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			var resp entities.ErrorResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestPollTransfer(t *testing.T) {
	f := setup(t)
	rec := pendingRecord()
	rec.Status = entities.TransferStatusRedeeming
	rec.RedeemTxHash = "0xmint"
	f.service.On("Poll", mock.Anything, rec.ID).Return(rec, nil)

	w := f.do(http.MethodPost, "/api/v1/transfers/"+rec.ID.String()+"/poll", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp entities.TransferResponse
	decode(t, w, &resp)
	assert.Equal(t, "https://basescan.org/tx/0xmint", resp.RedeemTxURL)
}

func TestInternalErrorHidesMessage(t *testing.T) {
	f := setup(t)
	id := uuid.New()
	f.service.On("Get", mock.Anything, id).Return(nil, errors.New("pq: connection refused"))

	w := f.do(http.MethodGet, "/api/v1/transfers/"+id.String(), "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestHealth(t *testing.T) {
	f := setup(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "").Code)

	w := f.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":"ok"`)
}

func TestReadiness_Failing(t *testing.T) {
	h := NewHealthHandler(map[string]ReadinessCheck{
		"database": func(context.Context) error { return errors.New("down") },
	}, logger.NewNop(), "test")
	r := gin.New()
	r.GET("/ready", h.Readiness)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")
}
