// Package gateway adapts Genkit model generation to the ModelGateway
// interface the agents depend on.
package gateway

import (
	"context"
	"log"
	"strings"

	"github.com/firebase/genkit/go/genkit"

	"github.com/ZanzyTHEbar/agentgraph"
)

// GenkitGateway implements agentgraph.ModelGateway on top of a Genkit
// instance. The model is selected at Init time via genkit.WithDefaultModel.
type GenkitGateway struct{}

// NewGenkitGateway creates a gateway. genkit.Init must have been called with
// a configured plugin and default model before the gateway is used.
func NewGenkitGateway() *GenkitGateway {
	return &GenkitGateway{}
}

// Complete sends a prompt to the default model and returns its text response.
func (g *GenkitGateway) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx,
		genkit.WithPrompt(prompt),
		genkit.WithCandidateCount(1),
	)
	if err != nil {
		return "", agentgraph.NewGatewayError("model generation failed", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		log.Printf("Model returned an empty response")
		return "", agentgraph.NewGatewayError("model returned an empty response", nil)
	}
	return text, nil
}
