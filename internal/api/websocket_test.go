package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"concierge/internal/finder"
	"concierge/internal/llm"
	"concierge/internal/menu"
	"concierge/internal/monitoring"
	"concierge/internal/session"
)

// wsStubProvider records the context of each streaming call so tests can
// observe cancellation after the client disconnects.
type wsStubProvider struct {
	mu    sync.Mutex
	reply string
	ctxs  []context.Context
}

func (p *wsStubProvider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return p.reply, nil
}

func (p *wsStubProvider) StreamComplete(ctx context.Context, messages []llm.Message, onChunk func(string) error) error {
	p.mu.Lock()
	p.ctxs = append(p.ctxs, ctx)
	p.mu.Unlock()
	return onChunk(p.reply)
}

func (p *wsStubProvider) SetTemperature(temp float32) {}
func (p *wsStubProvider) SetMaxTokens(tokens int32)   {}

func (p *wsStubProvider) lastCtx() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ctxs) == 0 {
		return nil
	}
	return p.ctxs[len(p.ctxs)-1]
}

func newWSTestServer(t *testing.T, provider llm.Provider) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := menu.NewCatalog([]menu.CatalogEntry{{Name: "coke", UnitPrice: 1.50}})
	require.NoError(t, err)

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	controller := session.NewController(cat, provider, finder.New(provider, stubRetriever{}), nil, metrics, zap.NewNop())
	return NewServer(controller, session.NewManager(), metrics, zap.NewNop(), "test-secret")
}

func dialWS(t *testing.T, ts *httptest.Server, id, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + id + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocketTurnStreamsReply(t *testing.T) {
	provider := &wsStubProvider{reply: "Coming right up!"}
	server := newWSTestServer(t, provider)
	id, token := createSession(t, server)

	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	conn := dialWS(t, ts, id, token)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"text": "1 coke"}))

	var chunk, turn wsEvent
	require.NoError(t, conn.ReadJSON(&chunk))
	assert.Equal(t, "chunk", chunk.Type)
	assert.Equal(t, "Coming right up!", chunk.Content)

	require.NoError(t, conn.ReadJSON(&turn))
	assert.Equal(t, "turn", turn.Type)
	assert.NotNil(t, turn.Turn)
}

func TestWebSocketDisconnectCancelsTurnContext(t *testing.T) {
	provider := &wsStubProvider{reply: "ok"}
	server := newWSTestServer(t, provider)
	id, token := createSession(t, server)

	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	conn := dialWS(t, ts, id, token)

	require.NoError(t, conn.WriteJSON(map[string]string{"text": "1 coke"}))

	var event wsEvent
	require.NoError(t, conn.ReadJSON(&event))
	require.NoError(t, conn.Close())

	// The connection-scoped context is canceled once the read loop exits.
	require.Eventually(t, func() bool {
		ctx := provider.lastCtx()
		return ctx != nil && ctx.Err() != nil
	}, 2*time.Second, 10*time.Millisecond)
}
