package agentgraph

import (
	"time"
)

// TaskType is the closed set of task categories a query can be routed as.
type TaskType string

const (
	// TaskDataProcessing covers analysis, calculation and extraction queries.
	TaskDataProcessing TaskType = "data_processing"
	// TaskDecisionMaking covers choices, recommendations and evaluations.
	TaskDecisionMaking TaskType = "decision_making"
	// TaskCommunication covers explanations, summaries and presentations.
	TaskCommunication TaskType = "communication"
	// TaskGeneral is the unclassified default; the orchestrator resolves it.
	TaskGeneral TaskType = "general"
)

// AllTaskTypes lists every valid task type, in declaration order.
var AllTaskTypes = []TaskType{TaskDataProcessing, TaskDecisionMaking, TaskCommunication, TaskGeneral}

// ParseTaskType maps a raw string onto a TaskType. Unknown values report ok=false.
func ParseTaskType(s string) (TaskType, bool) {
	switch TaskType(s) {
	case TaskDataProcessing, TaskDecisionMaking, TaskCommunication, TaskGeneral:
		return TaskType(s), true
	}
	return TaskGeneral, false
}

// Agent node names used throughout the graph and in agent_path entries.
const (
	AgentOrchestrator  = "orchestrator"
	AgentDataProcessor = "data_processor"
	AgentDecisionMaker = "decision_maker"
	AgentCommunicator  = "communicator"
)

// RoutingPath returns the static primary agent path for a task type.
// Unresolved or general task types fall through to the full pipeline.
func RoutingPath(t TaskType) []string {
	switch t {
	case TaskDataProcessing:
		return []string{AgentDataProcessor, AgentCommunicator}
	case TaskDecisionMaking:
		return []string{AgentDataProcessor, AgentDecisionMaker, AgentCommunicator}
	case TaskCommunication:
		return []string{AgentCommunicator}
	default:
		return []string{AgentDataProcessor, AgentDecisionMaker, AgentCommunicator}
	}
}

// RoutingPlan is the orchestrator's routing decision for a request.
type RoutingPlan struct {
	PrimaryPath []string `json:"primary_path"`
	// ParallelProcessing marks queries whose secondary analyses may run
	// concurrently. Consumed by the data processor.
	ParallelProcessing bool `json:"parallel_processing"`
}

// Analysis is the model's structured analysis of a query. When the model
// output does not parse as JSON the raw text is kept and Degraded is set.
type Analysis struct {
	Structured  map[string]interface{} `json:"structured,omitempty"`
	RawAnalysis string                 `json:"raw_analysis,omitempty"`
	Degraded    bool                   `json:"degraded"`
}

// ProcessedData is the data processor's structured output.
type ProcessedData struct {
	RawQuery          string              `json:"raw_query"`
	Analysis          Analysis            `json:"analysis"`
	Entities          []string            `json:"entities"`
	DataPoints        map[string][]string `json:"data_points"`
	NumericalAnalysis string              `json:"numerical_analysis,omitempty"`
	TextAnalysis      string              `json:"text_analysis,omitempty"`
}

// ScoreSet holds the three evaluation axes extracted for a decision option.
type ScoreSet struct {
	Feasibility float64 `json:"feasibility"`
	Impact      float64 `json:"impact"`
	Risk        float64 `json:"risk"`
}

// Weighted combines the axes into a single score. Risk counts inversely.
func (s ScoreSet) Weighted() float64 {
	return s.Feasibility*0.3 + s.Impact*0.4 + (1-s.Risk)*0.3
}

// OptionEvaluation is one evaluated decision candidate.
type OptionEvaluation struct {
	OptionID    string   `json:"option_id"`
	Description string   `json:"description"`
	Evaluation  string   `json:"evaluation"`
	Scores      ScoreSet `json:"scores"`
	// AdditionalContext carries supplementary search results attached when
	// the winning score fell below the confidence threshold.
	AdditionalContext string `json:"additional_context,omitempty"`
}

// Decision is the decision maker's final selection.
type Decision struct {
	Selected               *OptionEvaluation `json:"selected_option"`
	Confidence             float64           `json:"confidence"`
	Reasoning              string            `json:"reasoning"`
	Validation             string            `json:"validation,omitempty"`
	AlternativesConsidered int               `json:"alternatives_considered"`
}

// Metadata keys written by agents during a run.
const (
	MetaRoutingDecision    = "routing_decision"
	MetaRoutingReasoning   = "routing_reasoning"
	MetaFinalDecision      = "final_decision"
	MetaInsights           = "insights"
	MetaCommunicationStyle = "communication_style"
	MetaContext            = "context"
)

// State is the per-request record handed from agent to agent. Ownership is
// exclusive: exactly one agent mutates it at a time, so no locking is needed.
type State struct {
	// Query is the original input text, immutable after creation.
	Query string `json:"query"`

	// TaskType starts as the caller-supplied value (or general) and may be
	// rewritten once by the orchestrator.
	TaskType TaskType `json:"task_type"`

	// AgentPath records every agent that executed, in order, including
	// agents whose process step later failed.
	AgentPath []string `json:"agent_path"`

	ProcessedData *ProcessedData     `json:"processed_data,omitempty"`
	Decisions     []OptionEvaluation `json:"decisions,omitempty"`

	// ConfidenceScores maps an agent category to its reported confidence.
	// Each agent writes at most its own key.
	ConfidenceScores map[string]float64 `json:"confidence_scores"`

	// Errors is an append-only log of failure messages.
	Errors []string `json:"errors"`

	// FinalOutput is set only by the communicator; once set, the state is
	// terminal.
	FinalOutput string `json:"final_output,omitempty"`

	// Metadata is an open side channel for inter-agent handoff.
	Metadata map[string]interface{} `json:"metadata"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// NewState creates a fresh request state for a query.
func NewState(query string, taskType TaskType) *State {
	return &State{
		Query:            query,
		TaskType:         taskType,
		AgentPath:        []string{},
		ConfidenceScores: map[string]float64{},
		Errors:           []string{},
		Metadata:         map[string]interface{}{},
		StartTime:        time.Now(),
	}
}

// RecordAgent appends an agent to the execution path. Called from the agent
// pre-step before its process runs, so failed attempts are still recorded.
func (st *State) RecordAgent(name string) {
	st.AgentPath = append(st.AgentPath, name)
}

// RecordError appends a formatted failure message to the error log.
func (st *State) RecordError(msg string) {
	st.Errors = append(st.Errors, msg)
}

// RoutingDecision returns the orchestrator's routing plan, if present.
func (st *State) RoutingDecision() (RoutingPlan, bool) {
	plan, ok := st.Metadata[MetaRoutingDecision].(RoutingPlan)
	return plan, ok
}

// FinalDecision returns the decision maker's selection, if present.
func (st *State) FinalDecision() (*Decision, bool) {
	d, ok := st.Metadata[MetaFinalDecision].(*Decision)
	if !ok || d == nil {
		return nil, false
	}
	return d, true
}

// OverallConfidence is the executor-level aggregate: the unweighted mean of
// every recorded per-agent score, or 0.5 when none have been recorded. The
// communicator computes its own fixed-weight blend independently of this.
func (st *State) OverallConfidence() float64 {
	if len(st.ConfidenceScores) == 0 {
		return 0.5
	}
	var sum float64
	for _, v := range st.ConfidenceScores {
		sum += v
	}
	return sum / float64(len(st.ConfidenceScores))
}

// Duration reports how long the request has been processing.
func (st *State) Duration() time.Duration {
	if !st.EndTime.IsZero() {
		return st.EndTime.Sub(st.StartTime)
	}
	return time.Since(st.StartTime)
}
