package agents

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ZanzyTHEbar/agentgraph"
)

// keywordRules map query keywords onto task types. Order matters: the first
// keyword found in the query wins, regardless of position in the query text.
var keywordRules = []struct {
	keyword  string
	taskType agentgraph.TaskType
}{
	{"analyze", agentgraph.TaskDataProcessing},
	{"decide", agentgraph.TaskDecisionMaking},
	{"calculate", agentgraph.TaskDataProcessing},
	{"choose", agentgraph.TaskDecisionMaking},
	{"communicate", agentgraph.TaskCommunication},
	{"explain", agentgraph.TaskCommunication},
	{"process", agentgraph.TaskDataProcessing},
}

// parallelIndicators are query markers that suggest independent sub-requests
// which the data processor may analyze concurrently.
var parallelIndicators = []string{"and", "also", "additionally", "multiple", "various"}

// Orchestrator classifies incoming queries and plans the agent route.
type Orchestrator struct {
	base
	gateway agentgraph.ModelGateway
	cache   agentgraph.Cache
}

// NewOrchestrator creates the orchestrator agent. The cache is optional; when
// nil every unclassified query goes to the model gateway.
func NewOrchestrator(gateway agentgraph.ModelGateway, cache agentgraph.Cache) *Orchestrator {
	o := &Orchestrator{
		base: base{
			name:        agentgraph.AgentOrchestrator,
			description: "Classifies queries and routes them to the appropriate agents",
			capabilities: []string{
				"task classification",
				"routing",
				"parallel detection",
			},
			wrapErr: agentgraph.NewOrchestrationError,
		},
		gateway: gateway,
		cache:   cache,
	}
	return o
}

// Execute classifies the query's task type, computes the routing plan and
// records routing reasoning in the state metadata.
func (o *Orchestrator) Execute(ctx context.Context, st *agentgraph.State) error {
	return o.run(ctx, st, o.process)
}

func (o *Orchestrator) process(ctx context.Context, st *agentgraph.State) error {
	if st.TaskType == agentgraph.TaskGeneral {
		taskType, err := o.determineTaskType(ctx, st.Query)
		if err != nil {
			return err
		}
		st.TaskType = taskType
	}
	log.Printf("Task type determined: %s", st.TaskType)

	plan := agentgraph.RoutingPlan{
		PrimaryPath:        agentgraph.RoutingPath(st.TaskType),
		ParallelProcessing: needsParallelProcessing(st.Query),
	}
	st.Metadata[agentgraph.MetaRoutingDecision] = plan

	reasoning, err := o.gateway.Complete(ctx, fmt.Sprintf(
		"Explain in one sentence why a '%s' query like \"%s\" should be handled by these agents: %s",
		st.TaskType, st.Query, strings.Join(plan.PrimaryPath, ", ")))
	if err != nil {
		return err
	}
	st.Metadata[agentgraph.MetaRoutingReasoning] = strings.TrimSpace(reasoning)

	return nil
}

// determineTaskType resolves a query to a task type: keyword rules first,
// then the classification cache, then the model gateway. Model output that
// does not name a known category falls back to data_processing.
func (o *Orchestrator) determineTaskType(ctx context.Context, query string) (agentgraph.TaskType, error) {
	lower := strings.ToLower(query)
	for _, rule := range keywordRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.taskType, nil
		}
	}

	cacheKey := "classify:" + query
	if o.cache != nil {
		if cached, err := o.cache.Get(ctx, cacheKey); err == nil {
			if taskType, ok := cached.(agentgraph.TaskType); ok {
				log.Printf("Classification cache hit for query: %s", truncate(query, 50))
				return taskType, nil
			}
		}
	}

	response, err := o.gateway.Complete(ctx, fmt.Sprintf(
		`Classify the following query into exactly one of these categories:
- data_processing: analysis, calculation, or extraction of information
- decision_making: choosing between options, recommendations, or evaluations
- communication: explaining, summarizing, or presenting information

Respond with only the category name.

Query: %s`, query))
	if err != nil {
		return agentgraph.TaskGeneral, err
	}

	taskType, ok := agentgraph.ParseTaskType(strings.ToLower(strings.TrimSpace(response)))
	if !ok || taskType == agentgraph.TaskGeneral {
		taskType = agentgraph.TaskDataProcessing
	}

	if o.cache != nil {
		if err := o.cache.Set(ctx, cacheKey, taskType); err != nil {
			log.Printf("Failed to cache classification: %v", err)
		}
	}

	return taskType, nil
}

// needsParallelProcessing checks whether the query mentions multiple
// independent sub-requests.
func needsParallelProcessing(query string) bool {
	lower := strings.ToLower(query)
	for _, indicator := range parallelIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
