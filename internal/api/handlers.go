package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"concierge/internal/pricing"
	"concierge/internal/session"
)

// CreateSession starts a new session and returns its id with a bearer token
// scoped to it.
func (s *Server) CreateSession(c *gin.Context) {
	sess := s.sessions.Create()

	token, err := s.mintToken(sess.ID)
	if err != nil {
		s.sessions.Delete(sess.ID)
		s.logger.Error("failed to mint session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	s.metrics.ActiveSessions.Inc()
	c.JSON(http.StatusCreated, gin.H{
		"session_id": sess.ID,
		"token":      token,
		"created_at": sess.CreatedAt,
	})
}

// GetSession returns the full per-turn view of a session: cart, totals,
// transcript, restaurant context, and order history.
func (s *Server) GetSession(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	sess.Lock()
	defer sess.Unlock()

	snapshot := sess.Cart.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"restaurant": sess.Restaurant,
		"matched":    sess.Matched,
		"menu":       sess.Menu,
		"cart":       snapshot,
		"totals":     pricing.Compute(snapshot),
		"transcript": sess.Transcript,
		"orders":     sess.Ledger.ListAll(),
	})
}

// DeleteSession removes a session and all of its in-memory state.
func (s *Server) DeleteSession(c *gin.Context) {
	if _, ok := s.lookupSession(c); !ok {
		return
	}
	s.sessions.Delete(c.Param("id"))
	s.metrics.ActiveSessions.Dec()
	c.Status(http.StatusNoContent)
}

// PostMessage processes one conversational turn.
func (s *Server) PostMessage(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view := s.controller.HandleTurn(c.Request.Context(), sess, req.Text)
	c.JSON(http.StatusOK, view)
}

// GetCart returns the current cart snapshot and its computed totals.
func (s *Server) GetCart(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	sess.Lock()
	snapshot := sess.Cart.Snapshot()
	sess.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"cart":   snapshot,
		"totals": pricing.Compute(snapshot),
	})
}

// SetCartItem sets quantity and customization for one item. Quantity zero
// removes the item.
func (s *Server) SetCartItem(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	var req struct {
		Name     string `json:"name" binding:"required"`
		Quantity *int   `json:"quantity" binding:"required"`
		Note     string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.controller.SetCartItem(sess, req.Name, *req.Quantity, req.Note); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	sess.Lock()
	snapshot := sess.Cart.Snapshot()
	sess.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"cart":   snapshot,
		"totals": pricing.Compute(snapshot),
	})
}

// ClearCart empties the cart.
func (s *Server) ClearCart(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	s.controller.ClearCart(sess)
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// PlaceOrder finalizes the cart into a permanent order record. This is the
// only way an order is placed; it is never inferred from chat text.
func (s *Server) PlaceOrder(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	record, err := s.controller.Finalize(sess)
	if err != nil {
		if errors.Is(err, session.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, record)
}

// ListOrders returns the session's order history, most recent first.
func (s *Server) ListOrders(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	sess.Lock()
	orders := sess.Ledger.ListAll()
	sess.Unlock()

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// FindRestaurants matches restaurants to a free-text preference query.
func (s *Server) FindRestaurants(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	var req struct {
		Query string `json:"query" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matched, err := s.controller.MatchRestaurants(c.Request.Context(), sess, req.Query)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"restaurants": matched})
}

// SelectRestaurant switches the ordering context to a restaurant and returns
// its parsed menu.
func (s *Server) SelectRestaurant(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	var req struct {
		Restaurant string `json:"restaurant" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := s.controller.SelectRestaurant(c.Request.Context(), sess, req.Restaurant)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurant": sess.Restaurant,
		"menu":       items,
	})
}

// GetETA returns the delivery estimate for the selected restaurant.
func (s *Server) GetETA(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	eta, err := s.controller.DeliveryETA(c.Request.Context(), sess)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"eta_minutes": eta})
}

// ResetSession clears matches, selection, menu, and cart. History and
// transcript are kept.
func (s *Server) ResetSession(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	s.controller.Reset(sess)
	c.JSON(http.StatusOK, gin.H{"message": "Session reset"})
}
