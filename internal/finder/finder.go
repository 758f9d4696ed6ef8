// Package finder implements the retrieval-augmented restaurant workflow:
// matching restaurants to a preference query, fetching a restaurant's menu,
// and estimating delivery time. All language-model output is re-parsed into
// structured values before the rest of the system sees it.
package finder

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"concierge/internal/llm"
	"concierge/internal/pricing"
	"concierge/internal/retrieval"
)

const restaurantMatchPrompt = `You are a helpful and enthusiastic food concierge, trained to assist customers in finding the perfect restaurant based on preferences.

User query: %s

From the given restaurant document data, find the 10 best matching restaurants and respond clearly like this:
1. <restaurant name 1> - Rating: X, ETA: Y mins
2. <restaurant name 2> - Rating: X, ETA: Y mins
...

Only suggest restaurants that match the user's criteria (like veg, ETA < X, rating > Y, etc).

Context:
%s`

const menuPrompt = `You are a food assistant. List ONLY the real menu for "%s" using the provided document context.

Format each item like:
Dish Name - ₹Price

Do not invent or assume menu items. Only use what appears in the context.

Context:
%s`

const etaPrompt = `As a logistics assistant, what is the estimated delivery time in minutes for "%s"?
Return only a number, without units or extra text.

Context:
%s`

// ETA fallback bounds when no usable estimate comes back.
const (
	etaFallbackMin = 25
	etaFallbackMax = 40
)

var (
	matchedLine = regexp.MustCompile(`^\d+\.\s*(.*?)\s*-\s*Rating:`)
	menuLine    = regexp.MustCompile(`\s-\s*(?:₹|\$|£|€|Rs\.?\s*)\d+`)
	firstNumber = regexp.MustCompile(`\d+`)
)

// MenuItem is one orderable dish parsed from retrieved menu text. PriceKnown
// is false when the price had to fall back to pricing.DefaultUnitPrice.
type MenuItem struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Display    string  `json:"display"`
	PriceKnown bool    `json:"price_known"`
}

// Finder combines the retrieval collaborator with the language model to
// produce structured restaurant data.
type Finder struct {
	provider  llm.Provider
	retriever retrieval.Retriever
}

// New creates a finder over the given collaborators.
func New(provider llm.Provider, retriever retrieval.Retriever) *Finder {
	return &Finder{provider: provider, retriever: retriever}
}

func (f *Finder) complete(ctx context.Context, prompt string) (string, error) {
	return f.provider.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
}

// MatchRestaurants returns restaurant names matching a free-text preference
// query, in the model's ranking order. Lines that do not follow the numbered
// "N. Name - Rating: ..." shape are dropped.
func (f *Finder) MatchRestaurants(ctx context.Context, query string) ([]string, error) {
	docContext, err := f.retriever.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("restaurant retrieval failed: %w", err)
	}

	reply, err := f.complete(ctx, fmt.Sprintf(restaurantMatchPrompt, query, docContext))
	if err != nil {
		return nil, fmt.Errorf("restaurant matching failed: %w", err)
	}

	var restaurants []string
	for _, line := range strings.Split(reply, "\n") {
		if m := matchedLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			restaurants = append(restaurants, strings.TrimSpace(m[1]))
		}
	}
	return restaurants, nil
}

// FetchMenu returns the parsed menu for a restaurant. Only lines shaped like
// "Dish Name - ₹Price" are accepted; an unparseable price falls back to the
// default unit price rather than dropping the dish. A refusal-sounding
// context yields an empty menu.
func (f *Finder) FetchMenu(ctx context.Context, restaurant string) ([]MenuItem, error) {
	docContext, err := f.retriever.Query(ctx, "Give menu of "+restaurant)
	if err != nil {
		return nil, fmt.Errorf("menu retrieval failed: %w", err)
	}
	if strings.Contains(strings.ToLower(docContext), "as an ai") {
		return nil, nil
	}

	reply, err := f.complete(ctx, fmt.Sprintf(menuPrompt, restaurant, docContext))
	if err != nil {
		return nil, fmt.Errorf("menu generation failed: %w", err)
	}

	var items []MenuItem
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if !menuLine.MatchString(line) {
			continue
		}
		name := strings.TrimSpace(strings.SplitN(line, " - ", 2)[0])
		if name == "" {
			continue
		}
		price, known := pricing.ResolvePrice(line)
		items = append(items, MenuItem{
			Name:       strings.ToLower(name),
			Price:      price,
			Display:    line,
			PriceKnown: known,
		})
	}
	return items, nil
}

// DeliveryETA estimates delivery time in minutes for a restaurant. Any
// failure along the way falls back to a random estimate between 25 and 40
// minutes, matching the resilience policy of the rest of the pipeline: the
// order flow never blocks on a missing ETA.
func (f *Finder) DeliveryETA(ctx context.Context, restaurant string) int {
	docContext, err := f.retriever.Query(ctx, "What is the ETA for "+restaurant)
	if err != nil {
		return fallbackETA()
	}

	reply, err := f.complete(ctx, fmt.Sprintf(etaPrompt, restaurant, docContext))
	if err != nil {
		return fallbackETA()
	}

	m := firstNumber.FindString(reply)
	if m == "" {
		return fallbackETA()
	}
	eta, err := strconv.Atoi(m)
	if err != nil || eta <= 0 {
		return fallbackETA()
	}
	return eta
}

func fallbackETA() int {
	return etaFallbackMin + rand.Intn(etaFallbackMax-etaFallbackMin+1)
}
