package llm_client

import (
	"context"
	"errors"
	"testing"
)

type cannedProvider struct {
	resp string
	err  error
}

func (c *cannedProvider) Init(Config) error                   { return nil }
func (c *cannedProvider) DefaultModel() string                { return "canned" }
func (c *cannedProvider) AllowedModelOrDefault(string) string { return "canned" }

func (c *cannedProvider) Generate(context.Context, string, string) (string, error) {
	return c.resp, c.err
}

func (c *cannedProvider) GenerateJSON(context.Context, string, string, any) (string, error) {
	return c.resp, c.err
}

func TestCleanJSON(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanJSON(tc.in); got != tc.want {
				t.Errorf("CleanJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDecodeIntoWrapsMalformed(t *testing.T) {
	SetActive(&cannedProvider{resp: "definitely not json"}, "canned")
	t.Cleanup(func() { SetActive(nil, "") })

	var out struct{ A int }
	err := DecodeInto(context.Background(), "prompt", "m", nil, &out)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeIntoPassesThroughTransportErrors(t *testing.T) {
	transport := errors.New("backend unreachable")
	SetActive(&cannedProvider{err: transport}, "canned")
	t.Cleanup(func() { SetActive(nil, "") })

	var out struct{}
	err := DecodeInto(context.Background(), "prompt", "m", nil, &out)
	if !errors.Is(err, transport) {
		t.Errorf("expected transport error, got %v", err)
	}
	if errors.Is(err, ErrMalformed) {
		t.Error("transport failures must not look malformed")
	}
}

func TestGenerateWithoutProvider(t *testing.T) {
	SetActive(nil, "")
	if _, err := Generate(context.Background(), "p", "m"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}
