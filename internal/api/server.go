// Package api exposes the assistant over HTTP: session management, the
// conversational turn cycle, cart and order operations, and the restaurant
// finder. All responses are plain structured data; rendering is the client's
// concern.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"concierge/internal/monitoring"
	"concierge/internal/session"
)

// Server is the HTTP API for the assistant.
type Server struct {
	router     *gin.Engine
	controller *session.Controller
	sessions   *session.Manager
	metrics    *monitoring.Metrics
	logger     *zap.Logger
	jwtSecret  []byte
}

// NewServer creates the API server and configures its routes.
func NewServer(controller *session.Controller, sessions *session.Manager, metrics *monitoring.Metrics, logger *zap.Logger, jwtSecret string) *Server {
	s := &Server{
		router:     gin.New(),
		controller: controller,
		sessions:   sessions,
		metrics:    metrics,
		logger:     logger,
		jwtSecret:  []byte(jwtSecret),
	}

	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// Router returns the Gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.router.Group("/api/v1")
	v1.POST("/sessions", s.CreateSession)

	authed := v1.Group("/sessions/:id", s.AuthMiddleware())
	{
		authed.GET("", s.GetSession)
		authed.DELETE("", s.DeleteSession)

		// Conversational turns
		authed.POST("/messages", s.PostMessage)

		// Cart management
		authed.GET("/cart", s.GetCart)
		authed.PUT("/cart/items", s.SetCartItem)
		authed.DELETE("/cart", s.ClearCart)

		// Order placement and history
		authed.POST("/order", s.PlaceOrder)
		authed.GET("/orders", s.ListOrders)

		// Restaurant finder
		authed.POST("/restaurants", s.FindRestaurants)
		authed.POST("/restaurants/select", s.SelectRestaurant)
		authed.GET("/eta", s.GetETA)

		authed.POST("/reset", s.ResetSession)
	}

	s.router.GET("/ws/sessions/:id", s.AuthMiddleware(), s.HandleWebSocket)
}

// lookupSession resolves the :id path parameter to a live session, writing a
// 404 when it is unknown.
func (s *Server) lookupSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return sess, true
}
