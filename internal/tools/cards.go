package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	htmldom "golang.org/x/net/html"
)

func outerHTML(sel *goquery.Selection) string {
	var buf bytes.Buffer
	for _, n := range sel.Nodes {
		_ = htmldom.Render(&buf, n)
	}
	return buf.String()
}

// cardText flattens a selection to text with one space between element
// boundaries. Selection.Text concatenates adjacent elements with nothing in
// between, gluing e.g. a title to the price that follows it.
func cardText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*htmldom.Node)
	walk = func(n *htmldom.Node) {
		if n.Type == htmldom.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

// handleExtractCards pulls listing cards out of a portal page by CSS
// selector, returning each card's text and raw HTML for downstream
// extraction.
func handleExtractCards(_ context.Context, args map[string]any) (map[string]any, error) {
	html, err := GetString(args, "html")
	if err != nil {
		return nil, err
	}
	selector := OptString(args, "selector", ".listing-card")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	type card struct {
		Text string `json:"text"`
		HTML string `json:"html"`
	}
	var out []card
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, card{
			Text: cardText(s),
			HTML: outerHTML(s),
		})
	})

	b, _ := json.Marshal(out)
	return map[string]any{
		"cards_json": string(b),
		"count":      len(out),
	}, nil
}
