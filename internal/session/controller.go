package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"concierge/internal/cart"
	"concierge/internal/extract"
	"concierge/internal/finder"
	"concierge/internal/ledger"
	"concierge/internal/llm"
	"concierge/internal/menu"
	"concierge/internal/monitoring"
	"concierge/internal/pricing"
)

const systemPrompt = `You are a helpful and enthusiastic food concierge, assisting customers with menu questions and taking their orders. Answer naturally and keep replies short.`

// ErrEmptyCart is returned when finalize is requested with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// OrderArchive persists finalized orders outside the session. Archiving is
// best effort; failures never fail the order.
type OrderArchive interface {
	Save(sessionID string, record ledger.OrderRecord) error
}

// TurnView is the structured result of one conversational turn, handed to the
// presentation layer.
type TurnView struct {
	Reply      string         `json:"reply,omitempty"`
	ReplyErr   string         `json:"reply_error,omitempty"`
	Extracted  map[string]int `json:"extracted,omitempty"`
	Cart       []cart.Entry   `json:"cart"`
	Totals     pricing.Totals `json:"totals"`
	Transcript []llm.Message  `json:"transcript"`
}

// Controller sequences turns and order actions for sessions. It holds the
// shared read-only catalog and the external collaborators; all mutable state
// lives in the Session passed to each call.
type Controller struct {
	catalog  *menu.Catalog
	provider llm.Provider
	finder   *finder.Finder
	archive  OrderArchive
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewController wires a controller. The finder and archive may be nil when the
// deployment runs fixed-menu only or without persistence.
func NewController(catalog *menu.Catalog, provider llm.Provider, f *finder.Finder, archive OrderArchive, metrics *monitoring.Metrics, logger *zap.Logger) *Controller {
	return &Controller{
		catalog:  catalog,
		provider: provider,
		finder:   f,
		archive:  archive,
		metrics:  metrics,
		logger:   logger,
	}
}

// Catalog returns the shared read-only catalog.
func (c *Controller) Catalog() *menu.Catalog {
	return c.catalog
}

// HandleTurn processes one user utterance: extract order mentions, merge them
// into the cart, then ask the model for a reply over the full transcript.
//
// The cart update is applied first and unconditionally: it derives from the
// user's own text, not from the model's response, so a model failure must not
// roll it back. On failure the turn ends with no assistant reply and the view
// still reflects the updated cart.
func (c *Controller) HandleTurn(ctx context.Context, s *Session, utterance string) TurnView {
	s.Lock()
	defer s.Unlock()

	view, messages := c.beginTurn(s, utterance)

	start := time.Now()
	reply, err := c.provider.Complete(ctx, messages)
	c.metrics.ModelLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ModelFailuresTotal.Inc()
		c.logger.Warn("model produced no reply",
			zap.String("session", s.ID),
			zap.Error(err))
		view.ReplyErr = "no reply produced this turn"
	} else {
		s.AppendMessage(llm.RoleAssistant, reply)
		view.Reply = reply
	}

	view.Transcript = append([]llm.Message(nil), s.Transcript...)
	return view
}

// StreamTurn behaves like HandleTurn but streams the assistant reply through
// onChunk as it is generated. The full reply still lands in the transcript.
func (c *Controller) StreamTurn(ctx context.Context, s *Session, utterance string, onChunk func(string) error) TurnView {
	s.Lock()
	defer s.Unlock()

	view, messages := c.beginTurn(s, utterance)

	var reply string
	start := time.Now()
	err := c.provider.StreamComplete(ctx, messages, func(chunk string) error {
		reply += chunk
		return onChunk(chunk)
	})
	c.metrics.ModelLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ModelFailuresTotal.Inc()
		c.logger.Warn("model stream failed",
			zap.String("session", s.ID),
			zap.Error(err))
		view.ReplyErr = "no reply produced this turn"
	} else {
		s.AppendMessage(llm.RoleAssistant, reply)
		view.Reply = reply
	}

	view.Transcript = append([]llm.Message(nil), s.Transcript...)
	return view
}

// beginTurn applies the extraction and cart update for an utterance and
// prepares the message history for the model call. Callers hold the session
// lock. The cart update happens before and independently of the model call;
// it derives from the user's text alone.
func (c *Controller) beginTurn(s *Session, utterance string) (TurnView, []llm.Message) {
	c.metrics.TurnsTotal.Inc()

	extracted := extract.Extract(utterance, c.catalog)
	for _, qty := range extracted {
		c.metrics.ExtractedItemsTotal.Add(float64(qty))
	}
	s.Cart.MergeExtracted(extracted, c.catalog)

	s.AppendMessage(llm.RoleUser, utterance)

	view := TurnView{
		Extracted: extracted,
		Cart:      s.Cart.Snapshot(),
	}
	view.Totals = pricing.Compute(view.Cart)

	messages := make([]llm.Message, 0, len(s.Transcript)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	messages = append(messages, s.Transcript...)
	return view, messages
}

// Finalize converts the session's cart into a permanent ledger record and
// clears the cart. Finalize is only ever triggered by an explicit user
// action, never inferred from free text.
func (c *Controller) Finalize(s *Session) (ledger.OrderRecord, error) {
	s.Lock()
	defer s.Unlock()

	entries := s.Cart.Snapshot()
	if len(entries) == 0 {
		return ledger.OrderRecord{}, ErrEmptyCart
	}

	totals := pricing.Compute(entries)
	record := s.Ledger.Finalize(s.Restaurant, entries, totals)
	s.Cart.Clear()

	c.metrics.OrdersTotal.Inc()

	if c.archive != nil {
		if err := c.archive.Save(s.ID, record); err != nil {
			c.logger.Warn("failed to archive order",
				zap.String("session", s.ID),
				zap.String("order", record.ID),
				zap.Error(err))
		}
	}

	c.logger.Info("order finalized",
		zap.String("session", s.ID),
		zap.String("order", record.ID),
		zap.Float64("grand_total", record.GrandTotal))
	return record, nil
}

// MatchRestaurants runs the restaurant finder for a preference query and
// stores the matches on the session.
func (c *Controller) MatchRestaurants(ctx context.Context, s *Session, query string) ([]string, error) {
	if c.finder == nil {
		return nil, fmt.Errorf("restaurant finder is not configured")
	}

	s.Lock()
	defer s.Unlock()

	matched, err := c.finder.MatchRestaurants(ctx, query)
	if err != nil {
		return nil, err
	}
	s.Matched = matched
	return matched, nil
}

// SelectRestaurant switches the session's ordering context to one restaurant:
// the cart resets and the restaurant's menu is fetched and parsed. Selecting
// the already-selected restaurant deselects it.
func (c *Controller) SelectRestaurant(ctx context.Context, s *Session, restaurant string) ([]finder.MenuItem, error) {
	if c.finder == nil {
		return nil, fmt.Errorf("restaurant finder is not configured")
	}

	s.Lock()
	defer s.Unlock()

	if s.Restaurant == restaurant {
		s.Restaurant = ""
		s.Menu = nil
		s.Cart.Clear()
		return nil, nil
	}

	items, err := c.finder.FetchMenu(ctx, restaurant)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if !item.PriceKnown {
			c.metrics.PriceFallbacksTotal.Inc()
			c.logger.Info("menu item priced with default fallback",
				zap.String("session", s.ID),
				zap.String("item", item.Name))
		}
	}

	s.Restaurant = restaurant
	s.Menu = items
	s.Cart.Clear()
	return items, nil
}

// SetCartItem sets the quantity and note for one menu item, by name.
// Quantity zero removes the item; an item is only added when its quantity is
// positive. With a restaurant selected, its menu is the ordering context and
// its prices win; the fixed catalog applies only when no restaurant is
// selected, so a name appearing in both can never be charged at the wrong
// price.
func (c *Controller) SetCartItem(s *Session, name string, quantity int, note string) error {
	s.Lock()
	defer s.Unlock()

	if s.Restaurant != "" {
		for _, item := range s.Menu {
			if item.Name == name {
				s.Cart.AddOrUpdate(item.Name, item.Price, quantity, note)
				return nil
			}
		}
		return fmt.Errorf("item %q is not on the menu of %s", name, s.Restaurant)
	}

	price, ok := c.catalog.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown item %q", name)
	}
	s.Cart.AddOrUpdate(name, price, quantity, note)
	return nil
}

// DeliveryETA estimates delivery time for the session's selected restaurant.
func (c *Controller) DeliveryETA(ctx context.Context, s *Session) (int, error) {
	if c.finder == nil {
		return 0, fmt.Errorf("restaurant finder is not configured")
	}

	s.Lock()
	restaurant := s.Restaurant
	s.Unlock()
	if restaurant == "" {
		return 0, fmt.Errorf("no restaurant selected")
	}

	return c.finder.DeliveryETA(ctx, restaurant), nil
}

// ClearCart empties the session's cart without touching the restaurant
// context.
func (c *Controller) ClearCart(s *Session) {
	s.Lock()
	defer s.Unlock()
	s.Cart.Clear()
}

// Reset clears the session back to its initial state: no matches, no selected
// restaurant, no menu, empty cart. The ledger and transcript are kept; order
// history never shrinks within a session.
func (c *Controller) Reset(s *Session) {
	s.Lock()
	defer s.Unlock()

	s.Matched = nil
	s.Restaurant = ""
	s.Menu = nil
	s.Cart.Clear()
}
