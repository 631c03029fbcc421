package agentgraph

import (
	"context"
	"testing"
	"time"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	cfg := DefaultConfig()
	cfg.EnableEventBus = false

	communicator := &stubAgent{
		name: AgentCommunicator,
		process: func(ctx context.Context, st *State) error {
			st.FinalOutput = "final answer"
			st.ConfidenceScores["communication"] = 0.9
			return nil
		},
	}

	r, err := New(
		WithConfig(cfg),
		WithOrchestrator(classifyingStub(TaskDataProcessing)),
		WithDataProcessor(&stubAgent{name: AgentDataProcessor}),
		WithDecisionMaker(&stubAgent{name: AgentDecisionMaker}),
		WithCommunicator(communicator),
	)
	if err != nil {
		t.Fatalf("failed to create runtime: %v", err)
	}
	return r
}

func TestNew_RequiresAllAgents(t *testing.T) {
	_, err := New(WithOrchestrator(&stubAgent{name: AgentOrchestrator}))
	ae, ok := AsAgentError(err)
	if !ok || ae.Code != ErrCodeConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestProcess_Success(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Close()

	resp, err := r.Process(context.Background(), Request{Query: "summarize the sales numbers"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Result != "final answer" {
		t.Errorf("result = %q, want %q", resp.Result, "final answer")
	}
	if resp.TaskType != TaskDataProcessing {
		t.Errorf("task type = %s, want %s", resp.TaskType, TaskDataProcessing)
	}
	if resp.ConfidenceScore != 0.9 {
		t.Errorf("confidence = %v, want 0.9", resp.ConfidenceScore)
	}
	if resp.ProcessingTime < 0 {
		t.Errorf("negative processing time: %v", resp.ProcessingTime)
	}
}

func TestProcess_EmptyQuery(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Close()

	_, err := r.Process(context.Background(), Request{Query: "   "})
	ae, ok := AsAgentError(err)
	if !ok || ae.Code != ErrCodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestProcess_UnknownTaskType(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Close()

	_, err := r.Process(context.Background(), Request{Query: "query", TaskType: "bogus"})
	ae, ok := AsAgentError(err)
	if !ok || ae.Code != ErrCodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestProcess_CallerTaskTypeSkipsClassification(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableEventBus = false

	// An orchestrator that would fail loudly if asked to classify.
	orchestrator := &stubAgent{
		name: AgentOrchestrator,
		process: func(ctx context.Context, st *State) error {
			if st.TaskType == TaskGeneral {
				t.Error("expected task type to be pre-set")
			}
			st.Metadata[MetaRoutingDecision] = RoutingPlan{PrimaryPath: RoutingPath(st.TaskType)}
			return nil
		},
	}
	r, err := New(
		WithConfig(cfg),
		WithOrchestrator(orchestrator),
		WithDataProcessor(&stubAgent{name: AgentDataProcessor}),
		WithDecisionMaker(&stubAgent{name: AgentDecisionMaker}),
		WithCommunicator(&stubAgent{name: AgentCommunicator}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	resp, err := r.Process(context.Background(), Request{Query: "explain quarterly results", TaskType: "communication"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TaskType != TaskCommunication {
		t.Errorf("task type = %s, want communication", resp.TaskType)
	}
	if resp.Result != "No output generated" {
		t.Errorf("result = %q, want fallback output", resp.Result)
	}
}

func TestProcessAsync_Lifecycle(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Close()

	id, err := r.ProcessAsync(context.Background(), Request{Query: "analyze this"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		info, err := r.GetExecution(id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Status == ExecutionComplete {
			if info.Result == nil || info.Result.Result != "final answer" {
				t.Errorf("unexpected result: %+v", info.Result)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("execution did not complete, status %s", info.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestProcessAsync_ValidatesEagerly(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Close()

	_, err := r.ProcessAsync(context.Background(), Request{Query: ""})
	ae, ok := AsAgentError(err)
	if !ok || ae.Code != ErrCodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGetExecution_NotFound(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Close()

	if _, err := r.GetExecution("nope"); err == nil {
		t.Error("expected error for unknown execution")
	}
}

func TestCancelExecution_FinishedRun(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Close()

	id, err := r.ProcessAsync(context.Background(), Request{Query: "analyze this"})
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		info, err := r.GetExecution(id)
		if err != nil {
			t.Fatal(err)
		}
		if info.Status != ExecutionRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("execution did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancelled, err := r.CancelExecution(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled {
		t.Error("expected cancel of finished execution to report false")
	}
}

func TestAgents_Catalog(t *testing.T) {
	r := newTestRuntime(t)
	defer r.Close()

	catalog := r.Agents()
	if len(catalog) != 4 {
		t.Fatalf("expected 4 agents, got %d", len(catalog))
	}
	for _, name := range []string{AgentOrchestrator, AgentDataProcessor, AgentDecisionMaker, AgentCommunicator} {
		if _, ok := catalog[name]; !ok {
			t.Errorf("missing agent %s in catalog", name)
		}
	}
}
