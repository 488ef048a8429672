package worker

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is one immutable, process-wide registry entry.
type Definition struct {
	ID                     string   `yaml:"id"`
	Name                   string   `yaml:"name"`
	Description            string   `yaml:"description"`
	AssociatedGuidelineIDs []string `yaml:"associated_guideline_ids"`
	ToolNames              []string `yaml:"tool_names"`
	ValidationThreshold    float64  `yaml:"validation_threshold"`
	MaxRetries             int      `yaml:"max_retries"`
	Enabled                bool     `yaml:"enabled"`
}

// Registry is the static worker catalog. Built once at startup; read-only
// afterwards.
type Registry struct {
	defs []Definition
	byID map[string]Definition
}

const (
	defaultThreshold  = 7.0
	supportThreshold  = 8.0
	feedbackThreshold = 6.0
)

// DefaultDefinitions is the built-in catalog. A workers file can override or
// extend it (merged by id, later wins).
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			ID:                     "search_worker",
			Name:                   "Property Search",
			Description:            "Searches the property catalog for listings matching the customer's stated criteria.",
			AssociatedGuidelineIDs: []string{"property_search", "budget_filter"},
			ToolNames:              []string{"property.search", "listing.parse_links"},
			ValidationThreshold:    defaultThreshold,
			MaxRetries:             1,
			Enabled:                true,
		},
		{
			ID:                     "visit_worker",
			Name:                   "Visit Scheduling",
			Description:            "Schedules property visits once the customer has picked a listing.",
			AssociatedGuidelineIDs: []string{"visit_scheduling"},
			ToolNames:              []string{"visit.schedule"},
			ValidationThreshold:    defaultThreshold,
			MaxRetries:             1,
			Enabled:                true,
		},
		{
			ID:                     "support_worker",
			Name:                   "Support Escalation",
			Description:            "Hands the conversation to a human agent when the customer is stuck or upset.",
			AssociatedGuidelineIDs: []string{"escalation"},
			ToolNames:              []string{"support.escalate"},
			// Escalation must not misfire; stricter bar than the rest.
			ValidationThreshold: supportThreshold,
			MaxRetries:          1,
			Enabled:             true,
		},
		{
			ID:                     "feedback_worker",
			Name:                   "Feedback Logging",
			Description:            "Records customer feedback and complaints for the operations team.",
			AssociatedGuidelineIDs: []string{"feedback"},
			ToolNames:              []string{"feedback.log"},
			ValidationThreshold:    feedbackThreshold,
			MaxRetries:             1,
			Enabled:                true,
		},
	}
}

func NewRegistry(defs []Definition) *Registry {
	r := &Registry{byID: make(map[string]Definition)}
	for _, d := range defs {
		r.add(d)
	}
	return r
}

func (r *Registry) add(d Definition) {
	if d.ValidationThreshold == 0 {
		d.ValidationThreshold = defaultThreshold
	}
	if d.MaxRetries == 0 {
		d.MaxRetries = 1
	}
	if _, ok := r.byID[d.ID]; ok {
		for i := range r.defs {
			if r.defs[i].ID == d.ID {
				r.defs[i] = d
				break
			}
		}
	} else {
		r.defs = append(r.defs, d)
	}
	r.byID[d.ID] = d
}

// LoadRegistry merges a YAML workers file ({workers: [...]}) over the
// built-in defaults. A missing path returns the defaults alone.
func LoadRegistry(path string) (*Registry, error) {
	r := NewRegistry(DefaultDefinitions())
	if strings.TrimSpace(path) == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read workers file: %w", err)
	}
	var doc struct {
		Workers []Definition `yaml:"workers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse workers file: %w", err)
	}
	for _, d := range doc.Workers {
		r.add(d)
	}
	return r, nil
}

func (r *Registry) Get(id string) (Definition, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Lookup returns the definition only when it exists and is enabled.
func (r *Registry) Lookup(id string) (Definition, bool) {
	d, ok := r.byID[id]
	if !ok || !d.Enabled {
		return Definition{}, false
	}
	return d, true
}

// Has reports whether an enabled worker with the given id exists. Satisfies
// the planner's catalog interface.
func (r *Registry) Has(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// PromptPart renders the enabled catalog for the planner prompt.
func (r *Registry) PromptPart() string {
	var sb strings.Builder
	sb.WriteString("AVAILABLE WORKERS:\n")
	for _, d := range r.defs {
		if !d.Enabled {
			continue
		}
		sb.WriteString(fmt.Sprintf("- `%s`: %s Guidelines: [%s]. Tools: [%s].\n",
			d.ID, d.Description,
			strings.Join(d.AssociatedGuidelineIDs, ", "),
			strings.Join(d.ToolNames, ", ")))
	}
	return sb.String()
}
