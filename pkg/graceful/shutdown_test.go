package graceful

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rail-service/usdc-bridge/pkg/logger"
)

type recorder struct {
	calls *[]string
	name  string
	err   error
}

func (r recorder) Shutdown(timeout time.Duration) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func (r recorder) Close() error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestShutdownManager_Order(t *testing.T) {
	var calls []string
	sm := NewShutdownManager(&http.Server{}, logger.NewNop())
	sm.SetTimeout(time.Second)

	sm.Register(recorder{calls: &calls, name: "poller", err: errors.New("slow")})
	sm.RegisterCloser("redis", recorder{calls: &calls, name: "redis"})
	sm.RegisterCloser("database", recorder{calls: &calls, name: "database"})
	sm.RegisterCloser("none", nil)

	sm.Shutdown()

	assert.Equal(t, []string{"poller", "redis", "database"}, calls)
}

func TestShutdownManager_NoServer(t *testing.T) {
	sm := NewShutdownManager(nil, logger.NewNop())
	assert.NotPanics(t, sm.Shutdown)
}
