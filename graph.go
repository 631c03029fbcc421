package agentgraph

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Knetic/govaluate"

	"github.com/ZanzyTHEbar/agentgraph/internal/eventbus"
)

// End is the terminal pseudo-node; an edge leading to End finishes the run.
const End = "end"

// Edge is a directed transition between graph nodes. A nil condition makes
// the edge unconditional; otherwise the condition is evaluated against the
// current state's parameter map and the edge is taken when it yields true.
type Edge struct {
	To        string
	Condition string

	compiled *govaluate.EvaluableExpression
}

// Graph holds the agent registry and the directed transitions between them.
// Agents execute strictly one at a time; the state is handed from node to
// node by exclusive ownership transfer.
type Graph struct {
	nodes    map[string]Agent
	edges    map[string][]Edge
	entry    string
	eventBus eventbus.EventBus
}

// NewGraph creates an empty graph. The event bus is optional.
func NewGraph(bus eventbus.EventBus) *Graph {
	return &Graph{
		nodes:    make(map[string]Agent),
		edges:    make(map[string][]Edge),
		eventBus: bus,
	}
}

// AddNode registers an agent under its node name.
func (g *Graph) AddNode(agent Agent) error {
	name := agent.Name()
	if _, exists := g.nodes[name]; exists {
		return NewConfigurationError(fmt.Sprintf("node '%s' already registered", name), nil)
	}
	g.nodes[name] = agent
	return nil
}

// SetEntryPoint sets the node executed first.
func (g *Graph) SetEntryPoint(name string) error {
	if _, exists := g.nodes[name]; !exists {
		return NewConfigurationError(fmt.Sprintf("entry point '%s' is not a registered node", name), nil)
	}
	g.entry = name
	return nil
}

// AddEdge adds an unconditional transition from one node to another.
func (g *Graph) AddEdge(from, to string) error {
	return g.addEdge(from, Edge{To: to})
}

// AddConditionalEdge adds a transition guarded by an expression over the
// state parameters (see edgeParameters). Edges are evaluated in insertion
// order; the first edge whose condition holds (or that has no condition) wins.
func (g *Graph) AddConditionalEdge(from, to, condition string) error {
	expr, err := govaluate.NewEvaluableExpression(condition)
	if err != nil {
		return NewConfigurationError(fmt.Sprintf("invalid edge condition '%s'", condition), err)
	}
	return g.addEdge(from, Edge{To: to, Condition: condition, compiled: expr})
}

func (g *Graph) addEdge(from string, e Edge) error {
	if _, exists := g.nodes[from]; !exists {
		return NewConfigurationError(fmt.Sprintf("edge source '%s' is not a registered node", from), nil)
	}
	if e.To != End {
		if _, exists := g.nodes[e.To]; !exists {
			return NewConfigurationError(fmt.Sprintf("edge target '%s' is not a registered node", e.To), nil)
		}
	}
	g.edges[from] = append(g.edges[from], e)
	return nil
}

// Nodes returns the registered agents keyed by node name.
func (g *Graph) Nodes() map[string]Agent {
	out := make(map[string]Agent, len(g.nodes))
	for name, agent := range g.nodes {
		out[name] = agent
	}
	return out
}

// Execute runs the graph against the state until an edge reaches End. Any
// agent failure aborts the whole run; there is no retry or rerouting around
// a failed node.
func (g *Graph) Execute(ctx context.Context, st *State) error {
	if g.entry == "" {
		return NewConfigurationError("graph has no entry point", nil)
	}

	current := g.entry
	steps := 0
	maxSteps := len(g.nodes) + 1

	for current != End {
		select {
		case <-ctx.Done():
			return NewCancelledError(current, ctx.Err())
		default:
		}

		// A linear stage pipeline visits each node at most once; anything
		// longer means the edge set loops.
		steps++
		if steps > maxSteps {
			return NewGraphExecutionError(current, "transition cycle detected", nil)
		}

		agent, exists := g.nodes[current]
		if !exists {
			return NewGraphExecutionError(current, fmt.Sprintf("no node registered for '%s'", current), nil)
		}

		g.publish(ctx, eventbus.EventAgentExecutionStarted, current, st, nil)

		if err := agent.Execute(ctx, st); err != nil {
			g.publish(ctx, eventbus.EventAgentExecutionFailure, current, st, err)
			if err == context.Canceled || err == context.DeadlineExceeded {
				return NewCancelledError(current, err)
			}
			if !IsAgentError(err) {
				err = NewGraphExecutionError(current, "agent execution failed", err)
			}
			return err
		}

		g.publish(ctx, eventbus.EventAgentExecutionSuccess, current, st, nil)
		g.publishStageEvents(ctx, current, st)

		next, err := g.next(current, st)
		if err != nil {
			return err
		}
		log.Printf("Routing from %s to %s", current, next)
		current = next
	}

	st.EndTime = time.Now()
	return nil
}

// next picks the outgoing edge for a node by evaluating conditions in order.
func (g *Graph) next(from string, st *State) (string, error) {
	edges := g.edges[from]
	if len(edges) == 0 {
		return "", NewGraphExecutionError(from, "no outgoing edges", nil)
	}

	params := edgeParameters(st)
	for _, e := range edges {
		if e.compiled == nil {
			return e.To, nil
		}
		result, err := e.compiled.Evaluate(params)
		if err != nil {
			return "", NewGraphExecutionError(from, fmt.Sprintf("failed to evaluate edge condition '%s'", e.Condition), err)
		}
		if ok, _ := result.(bool); ok {
			return e.To, nil
		}
	}
	return "", NewGraphExecutionError(from, "no edge condition matched", nil)
}

// edgeParameters exposes the routing-relevant slice of the state to edge
// conditions.
func edgeParameters(st *State) map[string]interface{} {
	routeHint := AgentDataProcessor
	if plan, ok := st.RoutingDecision(); ok && len(plan.PrimaryPath) > 0 {
		routeHint = plan.PrimaryPath[0]
	}
	return map[string]interface{}{
		"task_type":            string(st.TaskType),
		"route_hint":           routeHint,
		"query_wants_decision": strings.Contains(strings.ToLower(st.Query), "decision"),
		"has_processed_data":   st.ProcessedData != nil,
		"has_decisions":        len(st.Decisions) > 0,
	}
}

// publishStageEvents emits the domain events derived from what a node wrote
// to the state: classification and routing after the orchestrator, the
// selected decision after the decision maker.
func (g *Graph) publishStageEvents(ctx context.Context, node string, st *State) {
	if g.eventBus == nil {
		return
	}
	switch node {
	case AgentOrchestrator:
		g.emit(ctx, eventbus.EventTaskTypeClassified, string(st.TaskType), map[string]interface{}{
			"query": st.Query,
		})
		if plan, ok := st.RoutingDecision(); ok {
			g.emit(ctx, eventbus.EventRoutingComputed, plan, map[string]interface{}{
				"task_type": string(st.TaskType),
			})
		}
	case AgentDecisionMaker:
		if decision, ok := st.FinalDecision(); ok {
			metadata := map[string]interface{}{
				"confidence":   decision.Confidence,
				"alternatives": decision.AlternativesConsidered,
			}
			if decision.Selected != nil {
				metadata["option_id"] = decision.Selected.OptionID
			}
			g.emit(ctx, eventbus.EventDecisionSelected, decision, metadata)
		}
	}
}

func (g *Graph) emit(ctx context.Context, eventType eventbus.EventType, payload interface{}, metadata map[string]interface{}) {
	evt := eventbus.NewEvent(eventType, payload, "Graph.Execute", metadata)
	if err := g.eventBus.Publish(ctx, evt); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

func (g *Graph) publish(ctx context.Context, eventType eventbus.EventType, agent string, st *State, cause error) {
	if g.eventBus == nil {
		return
	}
	metadata := map[string]interface{}{
		"agent":     agent,
		"task_type": string(st.TaskType),
	}
	if cause != nil {
		metadata["error"] = cause.Error()
	}
	evt := eventbus.NewEvent(eventType, st.Query, "Graph.Execute", metadata)
	if err := g.eventBus.Publish(ctx, evt); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

// BuildDefaultGraph wires the standard four-agent pipeline:
//
//	orchestrator -> {data_processor | decision_maker | communicator}
//	data_processor -> {decision_maker | communicator}
//	decision_maker -> communicator
//	communicator -> end
//
// The orchestrator's edges follow its routing plan; the data processor hands
// off to the decision maker for decision-making task types or when the query
// itself asks for a decision.
func BuildDefaultGraph(bus eventbus.EventBus, orchestrator, dataProcessor, decisionMaker, communicator Agent) (*Graph, error) {
	g := NewGraph(bus)

	for _, agent := range []Agent{orchestrator, dataProcessor, decisionMaker, communicator} {
		if err := g.AddNode(agent); err != nil {
			return nil, err
		}
	}
	if err := g.SetEntryPoint(AgentOrchestrator); err != nil {
		return nil, err
	}

	type edgeDef struct {
		from, to, condition string
	}
	defs := []edgeDef{
		{AgentOrchestrator, AgentDecisionMaker, "route_hint == 'decision_maker'"},
		{AgentOrchestrator, AgentCommunicator, "route_hint == 'communicator'"},
		{AgentOrchestrator, AgentDataProcessor, ""},
		{AgentDataProcessor, AgentDecisionMaker, "task_type == 'decision_making' || query_wants_decision"},
		{AgentDataProcessor, AgentCommunicator, ""},
		{AgentDecisionMaker, AgentCommunicator, ""},
		{AgentCommunicator, End, ""},
	}
	for _, d := range defs {
		var err error
		if d.condition == "" {
			err = g.AddEdge(d.from, d.to)
		} else {
			err = g.AddConditionalEdge(d.from, d.to, d.condition)
		}
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}
