// Package agents implements the four pipeline agents: orchestrator, data
// processor, decision maker and communicator.
package agents

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/ZanzyTHEbar/agentgraph"
)

// base carries the bookkeeping shared by every agent: identity, capability
// tags, an execution counter and the error category used when its process
// step fails.
type base struct {
	name         string
	description  string
	capabilities []string
	executions   atomic.Int64
	wrapErr      func(message string, cause error) *agentgraph.AgentError
}

func (b *base) Name() string           { return b.name }
func (b *base) Description() string    { return b.description }
func (b *base) Capabilities() []string { return b.capabilities }
func (b *base) Executions() int64      { return b.executions.Load() }

// run wraps a process step with the pre/post hooks. The pre-step appends the
// agent to the state's path and bumps the counter before processing, so a
// failed attempt is still recorded; that mutation is deliberately not rolled
// back on error.
func (b *base) run(ctx context.Context, st *agentgraph.State, process func(context.Context, *agentgraph.State) error) error {
	b.executions.Add(1)
	st.RecordAgent(b.name)
	log.Printf("Starting %s processing", b.name)

	if err := process(ctx, st); err != nil {
		log.Printf("Error in %s: %v", b.name, err)
		st.RecordError(fmt.Sprintf("%s: %v", b.name, err))
		return b.wrapErr(fmt.Sprintf("agent %s failed", b.name), err)
	}

	log.Printf("Completed %s processing", b.name)
	return nil
}
