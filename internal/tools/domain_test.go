package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func domainGateway() *Gateway {
	g := NewGateway()
	RegisterDomainTools(g)
	return g
}

func TestPropertySearchFilters(t *testing.T) {
	g := domainGateway()

	testCases := []struct {
		name string
		args map[string]any
		want int
	}{
		{"city only", map[string]any{"city": "madrid"}, 2},
		{"case insensitive city", map[string]any{"city": "Madrid"}, 2},
		{"max price", map[string]any{"city": "madrid", "max_price": float64(1500)}, 1},
		{"bedrooms floor", map[string]any{"city": "sevilla", "bedrooms": float64(2)}, 1},
		{"no matches", map[string]any{"city": "bilbao"}, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := g.Execute(context.Background(), "property.search", tc.args)
			if err != nil {
				t.Fatalf("property.search: %v", err)
			}
			if out["count"] != tc.want {
				t.Errorf("count = %v, want %d", out["count"], tc.want)
			}

			var listings []Listing
			if err := json.Unmarshal([]byte(out["listings_json"].(string)), &listings); err != nil {
				t.Fatalf("listings_json not valid JSON: %v", err)
			}
			if len(listings) != tc.want {
				t.Errorf("listings_json carries %d entries, want %d", len(listings), tc.want)
			}
		})
	}
}

func TestPropertySearchRequiresCity(t *testing.T) {
	g := domainGateway()
	if _, err := g.Execute(context.Background(), "property.search", map[string]any{}); err == nil {
		t.Error("expected an error without city")
	}
}

func TestVisitSchedule(t *testing.T) {
	g := domainGateway()

	out, err := g.Execute(context.Background(), "visit.schedule", map[string]any{
		"listing_id": "L-101",
		"date":       "2026-09-03",
	})
	if err != nil {
		t.Fatalf("visit.schedule: %v", err)
	}
	conf, _ := out["confirmation_id"].(string)
	if !strings.HasPrefix(conf, "VISIT-") {
		t.Errorf("confirmation_id = %q, want VISIT- prefix", conf)
	}

	if _, err := g.Execute(context.Background(), "visit.schedule", map[string]any{
		"listing_id": "L-999",
		"date":       "2026-09-03",
	}); err == nil {
		t.Error("expected an error for an unknown listing")
	}
}

func TestSupportEscalate(t *testing.T) {
	g := domainGateway()
	out, err := g.Execute(context.Background(), "support.escalate", map[string]any{"reason": "heating broken"})
	if err != nil {
		t.Fatalf("support.escalate: %v", err)
	}
	ticket, _ := out["ticket_id"].(string)
	if !strings.HasPrefix(ticket, "SUP-") {
		t.Errorf("ticket_id = %q, want SUP- prefix", ticket)
	}
}

func TestFeedbackLog(t *testing.T) {
	g := domainGateway()
	out, err := g.Execute(context.Background(), "feedback.log", map[string]any{
		"comment": "great service",
		"rating":  float64(5),
	})
	if err != nil {
		t.Fatalf("feedback.log: %v", err)
	}
	if out["logged"] != true || out["rating"] != 5 {
		t.Errorf("unexpected result: %v", out)
	}
}

func TestParseLinks(t *testing.T) {
	g := domainGateway()

	html := `<html><body>
		<a href="/listing/101">Sunny 2BR</a>
		<a href="https://other.example/listing/7">External</a>
		<p>no link here</p>
	</body></html>`

	out, err := g.Execute(context.Background(), "listing.parse_links", map[string]any{
		"html":     html,
		"base_url": "https://portal.example",
	})
	if err != nil {
		t.Fatalf("listing.parse_links: %v", err)
	}
	if out["count"] != 2 {
		t.Fatalf("count = %v, want 2", out["count"])
	}

	var links []struct {
		Text string `json:"text"`
		URL  string `json:"url"`
	}
	if err := json.Unmarshal([]byte(out["links_json"].(string)), &links); err != nil {
		t.Fatalf("links_json: %v", err)
	}
	if links[0].URL != "https://portal.example/listing/101" {
		t.Errorf("relative href not resolved: %q", links[0].URL)
	}
	if links[1].URL != "https://other.example/listing/7" {
		t.Errorf("absolute href must pass through: %q", links[1].URL)
	}
	if links[0].Text != "Sunny 2BR" {
		t.Errorf("anchor text = %q", links[0].Text)
	}
}
