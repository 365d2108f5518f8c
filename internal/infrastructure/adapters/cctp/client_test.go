package cctp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

func newTestClient(url string) *Client {
	return NewClient(Config{BaseURL: url, RetryBaseDelay: time.Millisecond}, zap.NewNop())
}

func chain(id entities.ChainID, domain uint32) entities.ChainConfig {
	return entities.ChainConfig{ID: id, CCTPDomain: &domain}
}

func TestNewClient(t *testing.T) {
	logger := zap.NewNop()

	t.Run("defaults to sandbox URL", func(t *testing.T) {
		client := NewClient(Config{Environment: "sandbox"}, logger)
		assert.Equal(t, IrisSandboxURL, client.config.BaseURL)
	})

	t.Run("uses mainnet URL", func(t *testing.T) {
		client := NewClient(Config{Environment: "mainnet"}, logger)
		assert.Equal(t, IrisMainnetURL, client.config.BaseURL)
	})

	t.Run("respects custom base URL", func(t *testing.T) {
		client := NewClient(Config{BaseURL: "https://custom.api"}, logger)
		assert.Equal(t, "https://custom.api", client.config.BaseURL)
	})
}

func TestGetMessages(t *testing.T) {
	t.Run("returns messages on success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/messages/0", r.URL.Path)
			assert.Equal(t, "0xabc123", r.URL.Query().Get("transactionHash"))

			json.NewEncoder(w).Encode(MessagesResponse{Messages: []Message{{
				Attestation: "0xattestation",
				Message:     "0xmessage",
				Status:      AttestationStatusComplete,
			}}})
		}))
		defer server.Close()

		resp, err := newTestClient(server.URL).GetMessages(context.Background(), DomainEthereum, "0xabc123")
		require.NoError(t, err)
		require.Len(t, resp.Messages, 1)
		assert.True(t, resp.Messages[0].IsComplete())
	})

	t.Run("404 means no messages yet", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"code":404,"message":"Message not found"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).GetMessages(context.Background(), DomainBase, "0xabc")
		assert.ErrorIs(t, err, ErrNoMessages)
	})

	t.Run("empty list means no messages", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(MessagesResponse{Messages: []Message{}})
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).GetMessages(context.Background(), DomainBase, "0xabc")
		assert.ErrorIs(t, err, ErrNoMessages)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(MessagesResponse{Messages: []Message{{Status: AttestationStatusComplete, Attestation: "0x1"}}})
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).GetMessages(context.Background(), DomainBase, "0xabc")
		require.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":400,"message":"Invalid transaction hash"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).GetMessages(context.Background(), DomainBase, "nope")
		var apiErr *ErrorResponse
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Invalid transaction hash", apiErr.Message)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestGetFees(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/burn/USDC/fees/0/6", r.URL.Path)
		w.Write([]byte(`[{"finalityThreshold":1000,"minimumFee":1},{"finalityThreshold":2000,"minimumFee":0}]`))
	}))
	defer server.Close()

	tiers, err := newTestClient(server.URL).GetFees(context.Background(), DomainEthereum, DomainBase)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, FinalityThresholdFast, tiers[0].FinalityThreshold)
	assert.True(t, tiers[0].MinimumFee.Equal(decimal.NewFromInt(1)))
}

func TestAttester_Fetch(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
		wantErr error
	}{
		{
			name: "complete",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"messages":[{"status":"complete","attestation":"0xatt","message":"0xmsg"}]}`))
			},
			want: "0xatt",
		},
		{
			name: "pending confirmations",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"messages":[{"status":"pending_confirmations","attestation":"PENDING"}]}`))
			},
			wantErr: domainerrors.ErrAttestationPending,
		},
		{
			name: "not indexed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr: domainerrors.ErrAttestationPending,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			a := NewAttester(newTestClient(server.URL), zap.NewNop())
			got, err := a.Fetch(context.Background(), chain("ethereum", DomainEthereum), "0xburn")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttester_FetchRequiresDomain(t *testing.T) {
	a := NewAttester(newTestClient("http://unused"), zap.NewNop())
	_, err := a.Fetch(context.Background(), entities.ChainConfig{ID: "bsc"}, "0xburn")
	assert.ErrorIs(t, err, ErrNoDomain)
}

func TestAttester_QuoteBridgeFee(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"finalityThreshold":1000,"minimumFee":1},{"finalityThreshold":2000,"minimumFee":0.5}]`))
	}))
	defer server.Close()

	a := NewAttester(newTestClient(server.URL), zap.NewNop())
	fee, err := a.QuoteBridgeFee(context.Background(), chain("ethereum", DomainEthereum), chain("base", DomainBase), usdc.MustParse("100"))
	require.NoError(t, err)
	assert.Equal(t, "0.005", fee.String())
}

func TestAttester_QuoteBridgeFeeNoStandardTier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"finalityThreshold":1000,"minimumFee":1}]`))
	}))
	defer server.Close()

	a := NewAttester(newTestClient(server.URL), zap.NewNop())
	_, err := a.QuoteBridgeFee(context.Background(), chain("ethereum", DomainEthereum), chain("base", DomainBase), usdc.MustParse("100"))
	assert.ErrorIs(t, err, ErrNoFeeTier)
}

func TestDomainConstants(t *testing.T) {
	assert.Equal(t, uint32(0), DomainEthereum)
	assert.Equal(t, uint32(5), DomainSolana)
	assert.Equal(t, uint32(6), DomainBase)
	assert.Equal(t, uint32(7), DomainPolygon)
	assert.Equal(t, "Solana", DomainNames[DomainSolana])
}
