package compose

import (
	"context"
	"errors"
	"strings"
	"testing"

	"concierge/internal/conversation"
	"concierge/internal/guideline"
	"concierge/internal/llm_client"
	"concierge/internal/worker"
)

type cannedProvider struct {
	resp string
	err  error
	last string
}

func (c *cannedProvider) Init(llm_client.Config) error        { return nil }
func (c *cannedProvider) DefaultModel() string                { return "canned" }
func (c *cannedProvider) AllowedModelOrDefault(string) string { return "canned" }

func (c *cannedProvider) Generate(_ context.Context, prompt, _ string) (string, error) {
	c.last = prompt
	return c.resp, c.err
}

func (c *cannedProvider) GenerateJSON(_ context.Context, prompt, _ string, _ any) (string, error) {
	c.last = prompt
	return c.resp, c.err
}

func install(t *testing.T, p *cannedProvider) {
	t.Helper()
	llm_client.SetActive(p, "canned")
	t.Cleanup(func() { llm_client.SetActive(nil, "") })
}

func writerInput() WriterInput {
	return WriterInput{
		Conversation: &conversation.State{SessionID: "s1", LastMessage: "find me a flat"},
		ActiveGuidelines: []guideline.Match{
			{Guideline: guideline.Guideline{ID: "property_search", Action: "present matching listings"}},
		},
		WorkerResults: []*worker.Result{
			{WorkerID: "search_worker", Status: worker.StatusSuccess, Response: "2 listings in Madrid"},
		},
	}
}

func TestComposeIncludesWorkerResults(t *testing.T) {
	p := &cannedProvider{resp: "I found two listings in Madrid for you."}
	install(t, p)

	out, err := (&LLMWriter{Model: "canned"}).Compose(context.Background(), writerInput())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if out.Response != "I found two listings in Madrid for you." {
		t.Errorf("unexpected response: %q", out.Response)
	}
	if !strings.Contains(p.last, "2 listings in Madrid") {
		t.Error("worker results missing from the writer prompt")
	}
	if !strings.Contains(p.last, "present matching listings") {
		t.Error("guideline actions missing from the writer prompt")
	}
}

func TestComposeEmptyReplyIsError(t *testing.T) {
	install(t, &cannedProvider{resp: "   "})

	_, err := (&LLMWriter{Model: "canned"}).Compose(context.Background(), writerInput())
	if !errors.Is(err, llm_client.ErrMalformed) {
		t.Errorf("expected ErrMalformed for empty reply, got %v", err)
	}
}

func TestStyleValidatorKeepsOriginalOnEmptyCorrection(t *testing.T) {
	install(t, &cannedProvider{resp: `{"response": "", "score": 4, "was_corrected": true}`})

	res, err := (&LLMStyleValidator{Model: "canned"}).ValidateAndCorrect(
		context.Background(), "the original", "msg", nil, nil)
	if err != nil {
		t.Fatalf("ValidateAndCorrect: %v", err)
	}
	if res.Response != "the original" {
		t.Errorf("empty correction must keep the original, got %q", res.Response)
	}
	if res.WasCorrected {
		t.Error("an empty correction does not count as corrected")
	}
}

func TestStyleValidatorReturnsCorrection(t *testing.T) {
	install(t, &cannedProvider{resp: `{"response": "a warmer version", "score": 8.5, "was_corrected": true}`})

	res, err := (&LLMStyleValidator{Model: "canned"}).ValidateAndCorrect(
		context.Background(), "cold draft", "msg", nil, map[string]string{"customer_name": "Ana"})
	if err != nil {
		t.Fatalf("ValidateAndCorrect: %v", err)
	}
	if res.Response != "a warmer version" || !res.WasCorrected {
		t.Errorf("unexpected result: %+v", res)
	}
}
