// Package agentgraph provides a multi-agent runtime that routes natural
// language queries through a graph of specialized agents.
package agentgraph

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/agentgraph/internal/eventbus"
)

// Runtime is the main entry point into the agentgraph system. It owns the
// agent graph and executes requests against it.
type Runtime struct {
	// The four pipeline agents
	orchestrator  Agent
	dataProcessor Agent
	decisionMaker Agent
	communicator  Agent

	graph    *Graph
	eventBus eventbus.EventBus

	// Configuration
	config Config

	// Async processing
	asyncExecutions map[string]*Execution
	asyncMutex      sync.RWMutex
}

// Config holds the configuration options for the agentgraph runtime.
type Config struct {
	// Threshold below which the decision maker gathers supplementary context
	ConfidenceThreshold float64

	// Whether the decision maker validates its selection with a web search
	RequireValidation bool

	// Maximum results requested from the search tool
	MaxSearchResults int

	// Event bus configuration
	EnableEventBus      bool
	EventBusBufferSize  int
	EventBusWorkerCount int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.7,
		RequireValidation:   true,
		MaxSearchResults:    5,
		EnableEventBus:      true,
		EventBusBufferSize:  100,
		EventBusWorkerCount: 5,
	}
}

// Option is a function that configures a Runtime instance.
type Option func(*Runtime)

// WithConfig sets the runtime configuration.
func WithConfig(config Config) Option {
	return func(r *Runtime) {
		r.config = config
	}
}

// WithOrchestrator sets the orchestrator agent.
func WithOrchestrator(agent Agent) Option {
	return func(r *Runtime) {
		r.orchestrator = agent
	}
}

// WithDataProcessor sets the data processor agent.
func WithDataProcessor(agent Agent) Option {
	return func(r *Runtime) {
		r.dataProcessor = agent
	}
}

// WithDecisionMaker sets the decision maker agent.
func WithDecisionMaker(agent Agent) Option {
	return func(r *Runtime) {
		r.decisionMaker = agent
	}
}

// WithCommunicator sets the communicator agent.
func WithCommunicator(agent Agent) Option {
	return func(r *Runtime) {
		r.communicator = agent
	}
}

// New creates a new Runtime with the provided options and builds the default
// agent graph.
func New(options ...Option) (*Runtime, error) {
	r := &Runtime{
		config:          DefaultConfig(),
		asyncExecutions: make(map[string]*Execution),
	}

	for _, option := range options {
		option(r)
	}

	// Validate required components
	if r.orchestrator == nil {
		return nil, NewConfigurationError("orchestrator agent is required", nil)
	}
	if r.dataProcessor == nil {
		return nil, NewConfigurationError("data processor agent is required", nil)
	}
	if r.decisionMaker == nil {
		return nil, NewConfigurationError("decision maker agent is required", nil)
	}
	if r.communicator == nil {
		return nil, NewConfigurationError("communicator agent is required", nil)
	}

	// Initialize event bus if enabled but not provided
	if r.config.EnableEventBus && r.eventBus == nil {
		r.eventBus = eventbus.NewChannelEventBus(
			eventbus.WithBufferSize(r.config.EventBusBufferSize),
			eventbus.WithWorkerCount(r.config.EventBusWorkerCount),
		)
		log.Printf("Initialized default channel-based event bus")
	}

	var bus eventbus.EventBus
	if r.config.EnableEventBus {
		bus = r.eventBus
	}
	graph, err := BuildDefaultGraph(bus, r.orchestrator, r.dataProcessor, r.decisionMaker, r.communicator)
	if err != nil {
		return nil, err
	}
	r.graph = graph

	return r, nil
}

// Request is the caller-facing input for a processing run.
type Request struct {
	Query    string                 `json:"query"`
	TaskType string                 `json:"task_type,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Response is the caller-facing result of a processing run.
type Response struct {
	Result          string                 `json:"result"`
	TaskType        TaskType               `json:"task_type"`
	AgentPath       []string               `json:"agent_path"`
	ConfidenceScore float64                `json:"confidence_score"`
	ProcessingTime  float64                `json:"processing_time"`
	Metadata        map[string]interface{} `json:"metadata"`
	Timestamp       time.Time              `json:"timestamp"`
}

// newState validates a request and builds the initial state for it.
func newState(req Request) (*State, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, NewValidationError("request", "query cannot be empty")
	}

	taskType := TaskGeneral
	if req.TaskType != "" {
		parsed, ok := ParseTaskType(req.TaskType)
		if !ok {
			return nil, NewValidationError("request", "unknown task type '"+req.TaskType+"'")
		}
		taskType = parsed
	}

	st := NewState(query, taskType)
	for k, v := range req.Metadata {
		st.Metadata[k] = v
	}
	if len(req.Context) > 0 {
		st.Metadata[MetaContext] = req.Context
	}
	return st, nil
}

// Process handles an end-to-end query execution through the agent graph.
func (r *Runtime) Process(ctx context.Context, req Request) (*Response, error) {
	st, err := newState(req)
	if err != nil {
		return nil, err
	}

	r.publish(ctx, eventbus.EventQueryProcessingStarted, st.Query, nil)
	log.Printf("Processing query (task_type: %s): %s", st.TaskType, truncate(st.Query, 50))

	if err := r.graph.Execute(ctx, st); err != nil {
		r.publish(ctx, eventbus.EventQueryProcessingFailure, st.Query, map[string]interface{}{
			"error":      err.Error(),
			"agent_path": st.AgentPath,
		})
		return nil, err
	}

	r.publish(ctx, eventbus.EventQueryProcessingSuccess, st.Query, map[string]interface{}{
		"agent_path":  st.AgentPath,
		"duration_ms": st.Duration().Milliseconds(),
	})

	return buildResponse(st), nil
}

// buildResponse extracts the caller-facing response from a completed state.
func buildResponse(st *State) *Response {
	result := st.FinalOutput
	if result == "" {
		result = "No output generated"
	}
	return &Response{
		Result:          result,
		TaskType:        st.TaskType,
		AgentPath:       st.AgentPath,
		ConfidenceScore: st.OverallConfidence(),
		ProcessingTime:  st.Duration().Seconds(),
		Metadata:        st.Metadata,
		Timestamp:       time.Now().UTC(),
	}
}

// AgentInfo describes an agent for the read-only catalog endpoint.
type AgentInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Executions   int64    `json:"executions"`
}

// Agents returns catalog entries for every registered agent, keyed by node
// name. Purely descriptive; no behavioral effect.
func (r *Runtime) Agents() map[string]AgentInfo {
	catalog := make(map[string]AgentInfo)
	for name, agent := range r.graph.Nodes() {
		catalog[name] = AgentInfo{
			Name:         agent.Name(),
			Description:  agent.Description(),
			Capabilities: agent.Capabilities(),
			Executions:   agent.Executions(),
		}
	}
	return catalog
}

// Close releases runtime resources.
func (r *Runtime) Close() error {
	if r.eventBus != nil {
		return r.eventBus.Close()
	}
	return nil
}

func (r *Runtime) publish(ctx context.Context, eventType eventbus.EventType, query string, metadata map[string]interface{}) {
	if !r.config.EnableEventBus || r.eventBus == nil {
		return
	}
	evt := eventbus.NewEvent(eventType, query, "Runtime.Process", metadata)
	if err := r.eventBus.Publish(ctx, evt); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
