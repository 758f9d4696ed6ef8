package finder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/llm"
	"concierge/internal/pricing"
)

type stubProvider struct {
	reply string
	err   error
}

func (s *stubProvider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return s.reply, s.err
}

func (s *stubProvider) StreamComplete(ctx context.Context, messages []llm.Message, onChunk func(string) error) error {
	if s.err != nil {
		return s.err
	}
	return onChunk(s.reply)
}

func (s *stubProvider) SetTemperature(temp float32) {}
func (s *stubProvider) SetMaxTokens(tokens int32)   {}

type stubRetriever struct {
	context string
	err     error
}

func (s *stubRetriever) Query(ctx context.Context, text string) (string, error) {
	return s.context, s.err
}

func TestMatchRestaurantsParsesNumberedLines(t *testing.T) {
	provider := &stubProvider{reply: `Here are the matches:
1. Spice Route - Rating: 4.2, ETA: 18 mins
2. Tandoor Tales - Rating: 3.8, ETA: 25 mins
Some trailing commentary.`}
	f := New(provider, &stubRetriever{context: "docs"})

	restaurants, err := f.MatchRestaurants(context.Background(), "veg place in Bandra")
	require.NoError(t, err)
	assert.Equal(t, []string{"Spice Route", "Tandoor Tales"}, restaurants)
}

func TestMatchRestaurantsModelFailure(t *testing.T) {
	f := New(&stubProvider{err: errors.New("service unavailable")}, &stubRetriever{})

	_, err := f.MatchRestaurants(context.Background(), "anything")
	assert.Error(t, err)
}

func TestFetchMenuParsesPricedLines(t *testing.T) {
	provider := &stubProvider{reply: `Butter Chicken - ₹350
Garlic Naan - ₹60
This line has no price
Mystery Special - ₹abc`}
	f := New(provider, &stubRetriever{context: "menu docs"})

	items, err := f.FetchMenu(context.Background(), "Spice Route")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "butter chicken", items[0].Name)
	assert.Equal(t, 350.0, items[0].Price)
	assert.True(t, items[0].PriceKnown)
	assert.Equal(t, "garlic naan", items[1].Name)
	assert.Equal(t, 60.0, items[1].Price)
}

func TestFetchMenuRefusalContext(t *testing.T) {
	f := New(&stubProvider{reply: "should not be called"}, &stubRetriever{context: "As an AI, I cannot find a menu"})

	items, err := f.FetchMenu(context.Background(), "Nowhere")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetchMenuPriceFallback(t *testing.T) {
	provider := &stubProvider{reply: "Chef Special - ₹ "}
	f := New(provider, &stubRetriever{})

	items, err := f.FetchMenu(context.Background(), "Spice Route")
	require.NoError(t, err)
	// Line fails the priced-line filter, so nothing is parsed
	assert.Empty(t, items)

	price, known := pricing.ResolvePrice("Chef Special - no tag")
	assert.False(t, known)
	assert.Equal(t, float64(pricing.DefaultUnitPrice), price)
}

func TestDeliveryETAParsesNumber(t *testing.T) {
	f := New(&stubProvider{reply: "32"}, &stubRetriever{})
	assert.Equal(t, 32, f.DeliveryETA(context.Background(), "Spice Route"))
}

func TestDeliveryETAFallbackRange(t *testing.T) {
	f := New(&stubProvider{err: errors.New("down")}, &stubRetriever{})

	for i := 0; i < 20; i++ {
		eta := f.DeliveryETA(context.Background(), "Spice Route")
		assert.GreaterOrEqual(t, eta, 25)
		assert.LessOrEqual(t, eta, 40)
	}
}

func TestDeliveryETANonNumericReply(t *testing.T) {
	f := New(&stubProvider{reply: "about half an hour"}, &stubRetriever{})

	eta := f.DeliveryETA(context.Background(), "Spice Route")
	// "half an hour" has no digits, so the fallback applies
	assert.GreaterOrEqual(t, eta, 25)
	assert.LessOrEqual(t, eta, 40)
}
