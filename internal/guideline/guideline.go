package guideline

type Difficulty string

const (
	DifficultyLow    Difficulty = "low"
	DifficultyMedium Difficulty = "medium"
	DifficultyHigh   Difficulty = "high"
)

type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeJourney Scope = "journey"
	ScopeState   Scope = "state"
)

// ValidationCriterion is one weighted check a worker's output is scored
// against when its guideline is active.
type ValidationCriterion struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Weight      int      `json:"weight" yaml:"weight"` // 0..100
	Examples    []string `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// Guideline is a declarative condition→action behavior rule. Values are
// immutable once constructed; the active set is managed by Store.
type Guideline struct {
	ID                 string                `json:"id" yaml:"id"`
	Condition          string                `json:"condition" yaml:"condition"`
	Action             string                `json:"action" yaml:"action"`
	Priority           int                   `json:"priority" yaml:"priority"` // 0..10
	Difficulty         Difficulty            `json:"difficulty" yaml:"difficulty"`
	Tags               []string              `json:"tags,omitempty" yaml:"tags,omitempty"`
	ToolNames          []string              `json:"tool_names,omitempty" yaml:"tool_names,omitempty"`
	Scope              Scope                 `json:"scope" yaml:"scope"`
	Enabled            bool                  `json:"enabled" yaml:"enabled"`
	ValidationCriteria []ValidationCriterion `json:"validation_criteria,omitempty" yaml:"validation_criteria,omitempty"`
}

// Match pairs a guideline with its applicability score for one
// message-processing cycle.
type Match struct {
	Guideline Guideline `json:"guideline"`
	Score     float64   `json:"score"` // 0..1
	Reason    string    `json:"reason"`
}

// IDs returns the guideline ids of a match list, in order.
func IDs(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Guideline.ID)
	}
	return out
}

// ContainsAny reports whether any of the wanted ids appears in matches.
func ContainsAny(matches []Match, wanted []string) bool {
	for _, w := range wanted {
		for _, m := range matches {
			if m.Guideline.ID == w {
				return true
			}
		}
	}
	return false
}
