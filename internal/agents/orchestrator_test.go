package agents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ZanzyTHEbar/agentgraph"
)

// gatewayFunc adapts a function to the ModelGateway interface.
type gatewayFunc func(ctx context.Context, prompt string) (string, error)

func (f gatewayFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// countingGateway records how many completions were requested.
type countingGateway struct {
	mu       sync.Mutex
	calls    int
	response string
}

func (g *countingGateway) Complete(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.response, nil
}

// mapCache is a minimal Cache for tests.
type mapCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[string]interface{})}
}

func (c *mapCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.items[key]; ok {
		return v, nil
	}
	return nil, errors.New("not found")
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func TestDetermineTaskType_KeywordRules(t *testing.T) {
	// The gateway must not be consulted when a keyword matches.
	failing := gatewayFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("gateway should not be called")
	})
	o := NewOrchestrator(failing, nil)

	cases := []struct {
		query string
		want  agentgraph.TaskType
	}{
		{"Please analyze this dataset", agentgraph.TaskDataProcessing},
		{"Help me decide on a vendor", agentgraph.TaskDecisionMaking},
		{"Calculate the total revenue", agentgraph.TaskDataProcessing},
		{"Choose the best framework", agentgraph.TaskDecisionMaking},
		{"Communicate the results to the team", agentgraph.TaskCommunication},
		{"Explain how this works", agentgraph.TaskCommunication},
		{"Process these records", agentgraph.TaskDataProcessing},
		// First matching keyword wins even when a later one appears too.
		{"Analyze the options and decide", agentgraph.TaskDataProcessing},
	}
	for _, c := range cases {
		got, err := o.determineTaskType(context.Background(), c.query)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", c.query, err)
			continue
		}
		if got != c.want {
			t.Errorf("%q: got %s, want %s", c.query, got, c.want)
		}
	}
}

func TestDetermineTaskType_ModelClassification(t *testing.T) {
	g := gatewayFunc(func(ctx context.Context, prompt string) (string, error) {
		return "  Decision_Making \n", nil
	})
	o := NewOrchestrator(g, nil)

	got, err := o.determineTaskType(context.Background(), "what should we do next quarter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != agentgraph.TaskDecisionMaking {
		t.Errorf("got %s, want decision_making", got)
	}
}

func TestDetermineTaskType_UnparseableFallsBack(t *testing.T) {
	g := gatewayFunc(func(ctx context.Context, prompt string) (string, error) {
		return "I think this is about synergy", nil
	})
	o := NewOrchestrator(g, nil)

	got, err := o.determineTaskType(context.Background(), "quarterly planning thoughts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != agentgraph.TaskDataProcessing {
		t.Errorf("got %s, want data_processing fallback", got)
	}
}

func TestDetermineTaskType_CachesClassification(t *testing.T) {
	g := &countingGateway{response: "communication"}
	o := NewOrchestrator(g, newMapCache())

	query := "tell me about the roadmap"
	for i := 0; i < 2; i++ {
		got, err := o.determineTaskType(context.Background(), query)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != agentgraph.TaskCommunication {
			t.Errorf("got %s, want communication", got)
		}
	}
	if g.calls != 1 {
		t.Errorf("gateway called %d times, want 1", g.calls)
	}
}

func TestNeedsParallelProcessing(t *testing.T) {
	if !needsParallelProcessing("summarize revenue and churn") {
		t.Error("expected 'and' to trigger parallel processing")
	}
	if needsParallelProcessing("summarize revenue") {
		t.Error("expected no parallel processing")
	}
}

func TestOrchestratorExecute(t *testing.T) {
	g := gatewayFunc(func(ctx context.Context, prompt string) (string, error) {
		return "because it needs evaluation", nil
	})
	o := NewOrchestrator(g, nil)

	st := agentgraph.NewState("decide between postgres and mysql", agentgraph.TaskGeneral)
	if err := o.Execute(context.Background(), st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if st.TaskType != agentgraph.TaskDecisionMaking {
		t.Errorf("task type = %s, want decision_making", st.TaskType)
	}
	plan, ok := st.RoutingDecision()
	if !ok {
		t.Fatal("expected routing plan in metadata")
	}
	if len(plan.PrimaryPath) != 3 {
		t.Errorf("primary path = %v, want full pipeline", plan.PrimaryPath)
	}
	if !plan.ParallelProcessing {
		t.Error("expected parallel processing for query containing 'and'")
	}
	if st.Metadata[agentgraph.MetaRoutingReasoning] != "because it needs evaluation" {
		t.Errorf("unexpected routing reasoning: %v", st.Metadata[agentgraph.MetaRoutingReasoning])
	}
	if len(st.AgentPath) != 1 || st.AgentPath[0] != agentgraph.AgentOrchestrator {
		t.Errorf("unexpected agent path: %v", st.AgentPath)
	}
	if o.Executions() != 1 {
		t.Errorf("executions = %d, want 1", o.Executions())
	}
}

func TestOrchestratorExecute_GatewayFailure(t *testing.T) {
	g := gatewayFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", agentgraph.NewGatewayError("model unavailable", nil)
	})
	o := NewOrchestrator(g, nil)

	st := agentgraph.NewState("decide something", agentgraph.TaskGeneral)
	err := o.Execute(context.Background(), st)
	ae, ok := agentgraph.AsAgentError(err)
	if !ok || ae.Code != agentgraph.ErrCodeOrchestration {
		t.Errorf("expected orchestration error, got %v", err)
	}
	if len(st.Errors) != 1 {
		t.Errorf("expected one recorded error, got %v", st.Errors)
	}
}
