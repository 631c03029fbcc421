package agentgraph

import "context"

// Agent is a named processing node of the orchestration graph. Execute
// consumes and produces the shared state via exclusive handoff; the graph
// executor never runs two agents concurrently for the same request.
type Agent interface {
	// Execute runs the agent against the state. Implementations wrap their
	// process step with pre/post bookkeeping: the agent name is appended to
	// the state's agent path before processing, and failures are recorded
	// into the state's error log before being returned.
	Execute(ctx context.Context, st *State) error

	// Name returns the agent's graph node name (e.g. "data_processor").
	Name() string

	// Description returns a human-readable summary for the agent catalog.
	Description() string

	// Capabilities returns descriptive capability tags for the catalog.
	Capabilities() []string

	// Executions returns how many times this agent has run.
	Executions() int64
}

// ModelGateway is the external text-completion collaborator. Timeout and
// retry policy live behind this interface, not in the orchestration layer.
type ModelGateway interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SearchResult is one ranked snippet returned by the search tool.
type SearchResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SearchTool is the external snippet-retrieval collaborator.
type SearchTool interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// Cache provides storage for frequently accessed data, like task-type
// classifications. Get returns a not-found error for missing or expired keys.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}) error
}
