package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Listing is one property in the demo catalog.
type Listing struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	City     string `json:"city"`
	Price    int    `json:"price"`
	Bedrooms int    `json:"bedrooms"`
}

var demoCatalog = []Listing{
	{ID: "L-101", Title: "Sunny 2BR apartment near the park", City: "madrid", Price: 1450, Bedrooms: 2},
	{ID: "L-102", Title: "Loft with terrace", City: "madrid", Price: 1900, Bedrooms: 1},
	{ID: "L-204", Title: "Family house with garden", City: "valencia", Price: 1700, Bedrooms: 4},
	{ID: "L-311", Title: "Studio in the old town", City: "sevilla", Price: 800, Bedrooms: 0},
	{ID: "L-315", Title: "Renovated 3BR close to metro", City: "sevilla", Price: 1200, Bedrooms: 3},
}

// RegisterDomainTools wires the demo catalog tools into a gateway. A real
// deployment replaces these with host integrations of the same names.
func RegisterDomainTools(g *Gateway) {
	g.Register(Spec{
		Name:        "property.search",
		Description: "Searches the property catalog.",
		Required:    []string{"city"},
	}, handlePropertySearch)

	g.Register(Spec{
		Name:        "visit.schedule",
		Description: "Schedules a visit to a listing.",
		Required:    []string{"listing_id", "date"},
	}, handleVisitSchedule)

	g.Register(Spec{
		Name:        "support.escalate",
		Description: "Escalates the conversation to a human agent.",
		Required:    []string{"reason"},
	}, handleSupportEscalate)

	g.Register(Spec{
		Name:        "feedback.log",
		Description: "Records customer feedback for the operations team.",
		Required:    []string{"comment"},
	}, handleFeedbackLog)

	g.Register(Spec{
		Name:        "listing.parse_links",
		Description: "Extracts listing links from an HTML page.",
		Required:    []string{"html"},
	}, handleParseLinks)

	g.Register(Spec{
		Name:        "listing.extract_cards",
		Description: "Extracts listing cards from an HTML page by CSS selector.",
		Required:    []string{"html"},
	}, handleExtractCards)
}

func handlePropertySearch(_ context.Context, args map[string]any) (map[string]any, error) {
	city, err := GetString(args, "city")
	if err != nil {
		return nil, err
	}
	maxPrice := -1
	if _, ok := args["max_price"]; ok {
		if maxPrice, err = GetInt(args, "max_price"); err != nil {
			return nil, err
		}
	}
	minBedrooms := -1
	if _, ok := args["bedrooms"]; ok {
		if minBedrooms, err = GetInt(args, "bedrooms"); err != nil {
			return nil, err
		}
	}

	var found []Listing
	for _, l := range demoCatalog {
		if !strings.EqualFold(l.City, strings.TrimSpace(city)) {
			continue
		}
		if maxPrice >= 0 && l.Price > maxPrice {
			continue
		}
		if minBedrooms >= 0 && l.Bedrooms < minBedrooms {
			continue
		}
		found = append(found, l)
	}

	b, _ := json.Marshal(found)
	return map[string]any{
		"listings_json": string(b),
		"count":         len(found),
	}, nil
}

func handleVisitSchedule(_ context.Context, args map[string]any) (map[string]any, error) {
	listingID, err := GetString(args, "listing_id")
	if err != nil {
		return nil, err
	}
	date, err := GetString(args, "date")
	if err != nil {
		return nil, err
	}
	found := false
	for _, l := range demoCatalog {
		if strings.EqualFold(l.ID, listingID) {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("unknown listing: %s", listingID)
	}
	return map[string]any{
		"confirmation_id": "VISIT-" + uuid.New().String()[:8],
		"listing_id":      listingID,
		"date":            date,
	}, nil
}

func handleSupportEscalate(_ context.Context, args map[string]any) (map[string]any, error) {
	reason, err := GetString(args, "reason")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"ticket_id": "SUP-" + uuid.New().String()[:8],
		"reason":    reason,
		"queued_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func handleFeedbackLog(_ context.Context, args map[string]any) (map[string]any, error) {
	comment, err := GetString(args, "comment")
	if err != nil {
		return nil, err
	}
	rating := 0
	if _, ok := args["rating"]; ok {
		if rating, err = GetInt(args, "rating"); err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"logged":  true,
		"comment": comment,
		"rating":  rating,
	}, nil
}
