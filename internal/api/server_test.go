package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
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

type stubProvider struct {
	reply string
}

func (s *stubProvider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return s.reply, nil
}

func (s *stubProvider) StreamComplete(ctx context.Context, messages []llm.Message, onChunk func(string) error) error {
	return onChunk(s.reply)
}

func (s *stubProvider) SetTemperature(temp float32) {}
func (s *stubProvider) SetMaxTokens(tokens int32)   {}

type stubRetriever struct{}

func (stubRetriever) Query(ctx context.Context, text string) (string, error) {
	return "restaurant documents", nil
}

func newTestServer(t *testing.T, reply string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := menu.NewCatalog([]menu.CatalogEntry{
		{Name: "coke", UnitPrice: 1.50},
		{Name: "gulab jamun", UnitPrice: 4.99},
		{Name: "mango lassi", UnitPrice: 3.99},
	})
	require.NoError(t, err)

	provider := &stubProvider{reply: reply}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	controller := session.NewController(cat, provider, finder.New(provider, stubRetriever{}), nil, metrics, zap.NewNop())
	return NewServer(controller, session.NewManager(), metrics, zap.NewNop(), "test-secret")
}

func doJSON(t *testing.T, server *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, server *Server) (string, string) {
	t.Helper()
	w := doJSON(t, server, "POST", "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	require.NotEmpty(t, resp.Token)
	return resp.SessionID, resp.Token
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, "ok")
	w := doJSON(t, server, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionRequiresToken(t *testing.T) {
	server := newTestServer(t, "ok")
	id, _ := createSession(t, server)

	w := doJSON(t, server, "GET", "/api/v1/sessions/"+id, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenBoundToSession(t *testing.T) {
	server := newTestServer(t, "ok")
	idA, _ := createSession(t, server)
	_, tokenB := createSession(t, server)

	w := doJSON(t, server, "GET", "/api/v1/sessions/"+idA, tokenB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPostMessageUpdatesCart(t *testing.T) {
	server := newTestServer(t, "Anything else?")
	id, token := createSession(t, server)

	w := doJSON(t, server, "POST", "/api/v1/sessions/"+id+"/messages", token,
		gin.H{"text": "1 gulab jamun and 2 mango lassi"})
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		Reply string `json:"reply"`
		Cart  []struct {
			Name     string `json:"name"`
			Quantity int    `json:"quantity"`
		} `json:"cart"`
		Totals struct {
			Subtotal   float64 `json:"subtotal"`
			Tax        float64 `json:"tax"`
			Discount   float64 `json:"discount"`
			GrandTotal float64 `json:"grand_total"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))

	assert.Equal(t, "Anything else?", view.Reply)
	require.Len(t, view.Cart, 2)
	assert.InDelta(t, 12.97, view.Totals.Subtotal, 1e-9)
	assert.InDelta(t, 0.65, view.Totals.Tax, 1e-9)
	assert.InDelta(t, 1.30, view.Totals.Discount, 1e-9)
	assert.InDelta(t, 12.32, view.Totals.GrandTotal, 1e-9)
}

func TestPostMessageRequiresText(t *testing.T) {
	server := newTestServer(t, "ok")
	id, token := createSession(t, server)

	w := doJSON(t, server, "POST", "/api/v1/sessions/"+id+"/messages", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartItemLifecycle(t *testing.T) {
	server := newTestServer(t, "ok")
	id, token := createSession(t, server)
	base := "/api/v1/sessions/" + id

	w := doJSON(t, server, "PUT", base+"/cart/items", token,
		gin.H{"name": "coke", "quantity": 3, "note": "no ice"})
	require.Equal(t, http.StatusOK, w.Code)

	// Quantity zero removes the entry
	w = doJSON(t, server, "PUT", base+"/cart/items", token,
		gin.H{"name": "coke", "quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Cart []interface{} `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Cart)
}

func TestCartUnknownItem(t *testing.T) {
	server := newTestServer(t, "ok")
	id, token := createSession(t, server)

	w := doJSON(t, server, "PUT", "/api/v1/sessions/"+id+"/cart/items", token,
		gin.H{"name": "pizza", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlaceOrderAndHistory(t *testing.T) {
	server := newTestServer(t, "ok")
	id, token := createSession(t, server)
	base := "/api/v1/sessions/" + id

	doJSON(t, server, "POST", base+"/messages", token, gin.H{"text": "2 coke"})

	w := doJSON(t, server, "POST", base+"/order", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var record struct {
		ID    string         `json:"id"`
		Items map[string]int `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, map[string]int{"coke": 2}, record.Items)

	// Cart is cleared after finalize
	w = doJSON(t, server, "GET", base+"/cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cartResp struct {
		Cart []interface{} `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cartResp))
	assert.Empty(t, cartResp.Cart)

	w = doJSON(t, server, "GET", base+"/orders", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Orders []struct {
			ID string `json:"id"`
		} `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Orders, 1)
	assert.Equal(t, record.ID, history.Orders[0].ID)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	server := newTestServer(t, "ok")
	id, token := createSession(t, server)

	w := doJSON(t, server, "POST", "/api/v1/sessions/"+id+"/order", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFindRestaurants(t *testing.T) {
	server := newTestServer(t, "1. Spice Route - Rating: 4.2, ETA: 18 mins")
	id, token := createSession(t, server)
	base := "/api/v1/sessions/" + id

	w := doJSON(t, server, "POST", base+"/restaurants", token,
		gin.H{"query": "veg place in Bandra"})
	require.Equal(t, http.StatusOK, w.Code)

	var matches struct {
		Restaurants []string `json:"restaurants"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matches))
	assert.Equal(t, []string{"Spice Route"}, matches.Restaurants)
}

func TestSelectRestaurantReturnsMenu(t *testing.T) {
	server := newTestServer(t, "Butter Chicken - ₹350\nGarlic Naan - ₹60")
	id, token := createSession(t, server)
	base := "/api/v1/sessions/" + id

	w := doJSON(t, server, "POST", base+"/restaurants/select", token,
		gin.H{"restaurant": "Spice Route"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Restaurant string `json:"restaurant"`
		Menu       []struct {
			Name  string  `json:"name"`
			Price float64 `json:"price"`
		} `json:"menu"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Spice Route", resp.Restaurant)
	require.Len(t, resp.Menu, 2)
	assert.Equal(t, "butter chicken", resp.Menu[0].Name)
	assert.Equal(t, 350.0, resp.Menu[0].Price)

	// ETA works once a restaurant is selected; stub reply has no digits
	// beyond the menu prices, so the first number wins
	w = doJSON(t, server, "GET", base+"/eta", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetETAWithoutSelection(t *testing.T) {
	server := newTestServer(t, "30")
	id, token := createSession(t, server)

	w := doJSON(t, server, "GET", "/api/v1/sessions/"+id+"/eta", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetSession(t *testing.T) {
	server := newTestServer(t, "ok")
	id, token := createSession(t, server)
	base := "/api/v1/sessions/" + id

	doJSON(t, server, "POST", base+"/messages", token, gin.H{"text": "2 coke"})

	w := doJSON(t, server, "POST", base+"/reset", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, server, "GET", base+"/cart", token, nil)
	var cartResp struct {
		Cart []interface{} `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cartResp))
	assert.Empty(t, cartResp.Cart)
}

func TestDeleteSession(t *testing.T) {
	server := newTestServer(t, "ok")
	id, token := createSession(t, server)

	w := doJSON(t, server, "DELETE", "/api/v1/sessions/"+id, token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, server, "GET", "/api/v1/sessions/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
