package agents

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/ZanzyTHEbar/agentgraph"
)

// recordingSearch is a SearchTool that records queries and returns canned
// results.
type recordingSearch struct {
	mu      sync.Mutex
	queries []string
	results []agentgraph.SearchResult
}

func (s *recordingSearch) Search(ctx context.Context, query string, maxResults int) ([]agentgraph.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return s.results, nil
}

func TestExtractScores(t *testing.T) {
	scores := extractScores("Feasibility: 8/10. Impact: 0.9. Risk: 2 out of 10.")
	if math.Abs(scores.Feasibility-0.8) > 1e-9 {
		t.Errorf("feasibility = %v, want 0.8", scores.Feasibility)
	}
	if math.Abs(scores.Impact-0.9) > 1e-9 {
		t.Errorf("impact = %v, want 0.9", scores.Impact)
	}
	if math.Abs(scores.Risk-0.2) > 1e-9 {
		t.Errorf("risk = %v, want 0.2", scores.Risk)
	}
}

func TestExtractScores_MissingAxesDefault(t *testing.T) {
	scores := extractScores("This option seems fine overall.")
	if scores.Feasibility != 0.5 || scores.Impact != 0.5 || scores.Risk != 0.5 {
		t.Errorf("expected neutral defaults, got %+v", scores)
	}
}

// decisionGateway answers the decision maker's prompts with fixed texts keyed
// by prompt shape.
func decisionGateway(optionBlocks string, evaluations map[string]string) gatewayFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Generate up to"):
			return optionBlocks, nil
		case strings.Contains(prompt, "Evaluate this option"):
			for needle, eval := range evaluations {
				if strings.Contains(prompt, needle) {
					return eval, nil
				}
			}
			return "feasibility: 0.5 impact: 0.5 risk: 0.5", nil
		case strings.Contains(prompt, "validate whether"):
			return "The evidence supports this decision.", nil
		default:
			return "It balances feasibility and impact.", nil
		}
	}
}

func TestDecisionMakerExecute_SelectsBestOption(t *testing.T) {
	g := decisionGateway(
		"Migrate to managed hosting\n\nStay on self-hosted servers",
		map[string]string{
			"Migrate to managed hosting":  "feasibility: 0.9 impact: 0.9 risk: 0.1",
			"Stay on self-hosted servers": "feasibility: 0.6 impact: 0.4 risk: 0.6",
		},
	)
	search := &recordingSearch{results: []agentgraph.SearchResult{{Title: "Hosting guide", Content: "content"}}}
	cfg := agentgraph.DefaultConfig()
	d := NewDecisionMaker(g, search, cfg)

	st := agentgraph.NewState("should we migrate our hosting", agentgraph.TaskDecisionMaking)
	if err := d.Execute(context.Background(), st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decision, ok := st.FinalDecision()
	if !ok {
		t.Fatal("expected a final decision")
	}
	if decision.Selected.OptionID != "option_1" {
		t.Errorf("selected = %s, want option_1", decision.Selected.OptionID)
	}
	wantScore := 0.9*0.3 + 0.9*0.4 + 0.9*0.3
	if math.Abs(decision.Confidence-wantScore) > 1e-9 {
		t.Errorf("confidence = %v, want %v", decision.Confidence, wantScore)
	}
	if decision.AlternativesConsidered != 2 {
		t.Errorf("alternatives = %d, want 2", decision.AlternativesConsidered)
	}
	if decision.Validation == "" {
		t.Error("expected validation text when validation is required")
	}
	if got := st.ConfidenceScores["decision_making"]; math.Abs(got-wantScore) > 1e-9 {
		t.Errorf("recorded confidence = %v, want %v", got, wantScore)
	}
	// High confidence: only the validation search should have run.
	if len(search.queries) != 1 {
		t.Errorf("search queries = %v, want only validation", search.queries)
	}
}

func TestDecisionMakerExecute_TieKeepsFirstOption(t *testing.T) {
	g := decisionGateway(
		"Option alpha\n\nOption beta",
		map[string]string{
			"Option alpha": "feasibility: 0.65 impact: 0.65 risk: 0.35",
			"Option beta":  "feasibility: 0.65 impact: 0.65 risk: 0.35",
		},
	)
	cfg := agentgraph.DefaultConfig()
	cfg.RequireValidation = false
	cfg.ConfidenceThreshold = 0.0
	d := NewDecisionMaker(g, &recordingSearch{}, cfg)

	st := agentgraph.NewState("pick one", agentgraph.TaskDecisionMaking)
	if err := d.Execute(context.Background(), st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decision, _ := st.FinalDecision()
	if decision.Selected.OptionID != "option_1" {
		t.Errorf("selected = %s, want first option on tie", decision.Selected.OptionID)
	}
}

func TestDecisionMakerExecute_LowConfidenceGathersContext(t *testing.T) {
	g := decisionGateway(
		"Weak option one\n\nWeak option two",
		map[string]string{
			"Weak option one": "feasibility: 0.4 impact: 0.4 risk: 0.6",
			"Weak option two": "feasibility: 0.5 impact: 0.5 risk: 0.5",
		},
	)
	search := &recordingSearch{results: []agentgraph.SearchResult{{Title: "Guide", Content: "advice"}}}
	cfg := agentgraph.DefaultConfig()
	cfg.RequireValidation = false
	d := NewDecisionMaker(g, search, cfg)

	st := agentgraph.NewState("what should we do", agentgraph.TaskDecisionMaking)
	if err := d.Execute(context.Background(), st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(search.queries) != 1 {
		t.Fatalf("search queries = %v, want one", search.queries)
	}
	if !strings.HasPrefix(search.queries[0], "best practices ") {
		t.Errorf("search query = %q, want best practices prefix", search.queries[0])
	}
	// The supplementary search keys off the first evaluated option.
	if !strings.Contains(search.queries[0], "Weak option one") {
		t.Errorf("search query = %q, want first option description", search.queries[0])
	}

	decision, _ := st.FinalDecision()
	if decision.Selected.OptionID != "option_2" {
		t.Errorf("selected = %s, want option_2", decision.Selected.OptionID)
	}
	if decision.Selected.AdditionalContext == "" {
		t.Error("expected additional context on the selected option")
	}
}

func TestDecisionMakerExecute_LimitsToThreeOptions(t *testing.T) {
	g := decisionGateway(
		"One\n\nTwo\n\nThree\n\nFour",
		map[string]string{},
	)
	cfg := agentgraph.DefaultConfig()
	cfg.RequireValidation = false
	cfg.ConfidenceThreshold = 0.0
	d := NewDecisionMaker(g, &recordingSearch{}, cfg)

	st := agentgraph.NewState("choose", agentgraph.TaskDecisionMaking)
	if err := d.Execute(context.Background(), st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.Decisions) != 3 {
		t.Errorf("evaluated %d options, want 3", len(st.Decisions))
	}
}

func TestSummarizeProcessedData(t *testing.T) {
	if got := summarizeProcessedData(nil); got != "No data available" {
		t.Errorf("nil data: got %q", got)
	}

	degraded := &agentgraph.ProcessedData{
		Analysis: agentgraph.Analysis{RawAnalysis: "raw text", Degraded: true},
	}
	if got := summarizeProcessedData(degraded); got != "raw text" {
		t.Errorf("degraded data: got %q", got)
	}

	structured := &agentgraph.ProcessedData{
		Analysis: agentgraph.Analysis{Structured: map[string]interface{}{"main_topic": "sales"}},
	}
	if got := summarizeProcessedData(structured); !strings.Contains(got, "main_topic") {
		t.Errorf("structured data: got %q", got)
	}
}
