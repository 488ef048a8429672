package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func absolute(base, href string) string {
	u, err := url.Parse(href)
	if err != nil || href == "" {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}
	if base == "" {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	return bu.ResolveReference(u).String()
}

// handleParseLinks extracts anchor links from an HTML page (e.g. a portal's
// listing index) so a search worker can reference external listings.
func handleParseLinks(_ context.Context, args map[string]any) (map[string]any, error) {
	html, err := GetString(args, "html")
	if err != nil {
		return nil, err
	}
	baseURL := OptString(args, "base_url", "")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	type link struct {
		Text string `json:"text"`
		URL  string `json:"url"`
	}
	var out []link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		t := strings.TrimSpace(s.Text())
		out = append(out, link{Text: t, URL: absolute(baseURL, href)})
	})

	b, _ := json.Marshal(out)
	return map[string]any{
		"links_json": string(b),
		"count":      len(out),
	}, nil
}
