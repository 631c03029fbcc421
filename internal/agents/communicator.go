package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/agentgraph"
)

// communicationStyles is the closed set of output styles the communicator
// supports. Anything else the model suggests is coerced to detailed.
var communicationStyles = map[string]bool{
	"technical": true,
	"executive": true,
	"casual":    true,
	"detailed":  true,
}

// stageWeights blend the per-stage confidence scores into the badge shown in
// the formatted output. Only stages that actually reported a score count;
// the weights renormalize over those.
var stageWeights = map[string]float64{
	"data_processing": 0.3,
	"decision_making": 0.4,
	"communication":   0.3,
}

// Communicator composes the final user-facing response document.
type Communicator struct {
	base
	gateway agentgraph.ModelGateway
}

// NewCommunicator creates the communicator agent.
func NewCommunicator(gateway agentgraph.ModelGateway) *Communicator {
	c := &Communicator{
		base: base{
			name:        agentgraph.AgentCommunicator,
			description: "Formats results into a final user-facing response",
			capabilities: []string{
				"style selection",
				"response composition",
				"insight generation",
			},
			wrapErr: agentgraph.NewCommunicationError,
		},
		gateway: gateway,
	}
	return c
}

// Execute composes and formats the final output for the state.
func (c *Communicator) Execute(ctx context.Context, st *agentgraph.State) error {
	return c.run(ctx, st, c.process)
}

func (c *Communicator) process(ctx context.Context, st *agentgraph.State) error {
	style, err := c.determineStyle(ctx, st.Query)
	if err != nil {
		return err
	}

	message, err := c.prepareMessage(ctx, st, style)
	if err != nil {
		return err
	}

	insights, err := c.generateInsights(ctx, st)
	if err != nil {
		return err
	}

	st.FinalOutput = formatOutput(message, st)
	st.Metadata[agentgraph.MetaCommunicationStyle] = style
	st.Metadata[agentgraph.MetaInsights] = insights
	st.ConfidenceScores["communication"] = 0.9
	return nil
}

// determineStyle picks the communication style best suited to the query.
func (c *Communicator) determineStyle(ctx context.Context, query string) (string, error) {
	response, err := c.gateway.Complete(ctx, fmt.Sprintf(
		`What communication style fits this query best: technical, executive, casual, or detailed?
Respond with only the style name.

Query: %s`, query))
	if err != nil {
		return "", err
	}

	style := strings.ToLower(strings.TrimSpace(response))
	if !communicationStyles[style] {
		style = "detailed"
	}
	return style, nil
}

// prepareMessage composes the core answer text from everything the earlier
// agents produced.
func (c *Communicator) prepareMessage(ctx context.Context, st *agentgraph.State, style string) (string, error) {
	var decisionText string
	if decision, ok := st.FinalDecision(); ok && decision.Selected != nil {
		decisionText = fmt.Sprintf("Selected approach: %s\n\nReasoning: %s",
			decision.Selected.Description, decision.Reasoning)
	} else {
		decisionText = "No decision was required for this query."
	}

	response, err := c.gateway.Complete(ctx, fmt.Sprintf(
		`Compose a %s response to the following query using the information gathered.

Query: %s

Analysis: %s

%s`, style, st.Query, summarizeProcessedData(st.ProcessedData), decisionText))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// generateInsights asks the model for key takeaways and keeps up to five
// bullet lines.
func (c *Communicator) generateInsights(ctx context.Context, st *agentgraph.State) ([]string, error) {
	response, err := c.gateway.Complete(ctx, fmt.Sprintf(
		"List the key insights from processing this query as short bullet points.\n\nQuery: %s\n\nAnalysis: %s",
		st.Query, summarizeProcessedData(st.ProcessedData)))
	if err != nil {
		return nil, err
	}
	return parseInsights(response), nil
}

// parseInsights keeps lines that look like bullets, stripped of their
// markers, capped at five.
func parseInsights(response string) []string {
	insights := []string{}
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "•") {
			continue
		}
		insight := strings.TrimSpace(strings.TrimLeft(line, "-•"))
		if insight == "" {
			continue
		}
		insights = append(insights, insight)
		if len(insights) == 5 {
			break
		}
	}
	return insights
}

// formatOutput renders the final markdown document.
func formatOutput(message string, st *agentgraph.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Response to: %s\n\n", st.Query)

	confidence := blendedConfidence(st.ConfidenceScores)
	fmt.Fprintf(&b, "**Confidence Level**: %s (%.0f%%)\n\n", confidenceBadge(confidence), confidence*100)

	b.WriteString("### Answer\n\n")
	b.WriteString(message)
	b.WriteString("\n")

	if section := dataPointsSection(st.ProcessedData); section != "" {
		b.WriteString("\n### Key Data Points\n\n")
		b.WriteString(section)
	}

	if decision, ok := st.FinalDecision(); ok && decision.Selected != nil {
		b.WriteString("\n### Decision Summary\n\n")
		fmt.Fprintf(&b, "- **Selected**: %s\n", decision.Selected.Description)
		fmt.Fprintf(&b, "- **Confidence**: %.2f\n", decision.Confidence)
		fmt.Fprintf(&b, "- **Alternatives considered**: %d\n", decision.AlternativesConsidered)
		if decision.Validation != "" {
			fmt.Fprintf(&b, "- **Validation**: %s\n", decision.Validation)
		}
	}

	fmt.Fprintf(&b, "\n### Processing Path\n\n%s\n", strings.Join(st.AgentPath, " → "))

	return b.String()
}

// blendedConfidence combines per-stage scores with fixed weights, renormalized
// over the stages that reported. With no scores it reports the neutral 0.5.
func blendedConfidence(scores map[string]float64) float64 {
	var weightedSum, totalWeight float64
	for stage, weight := range stageWeights {
		if score, ok := scores[stage]; ok {
			weightedSum += score * weight
			totalWeight += weight
		}
	}
	if totalWeight == 0 {
		return 0.5
	}
	return weightedSum / totalWeight
}

func confidenceBadge(confidence float64) string {
	switch {
	case confidence > 0.8:
		return "high"
	case confidence > 0.6:
		return "medium"
	default:
		return "low"
	}
}

// dataPointsSection renders the extracted entities and data points. Empty when
// there is nothing worth showing.
func dataPointsSection(data *agentgraph.ProcessedData) string {
	if data == nil {
		return ""
	}

	var b strings.Builder
	if len(data.Entities) > 0 {
		entities := data.Entities
		if len(entities) > 5 {
			entities = entities[:5]
		}
		fmt.Fprintf(&b, "- **Entities**: %s\n", strings.Join(entities, ", "))
	}

	keys := make([]string, 0, len(data.DataPoints))
	for key := range data.DataPoints {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		values := data.DataPoints[key]
		if len(values) > 3 {
			values = values[:3]
		}
		fmt.Fprintf(&b, "- **%s**: %s\n", titleCase(key), strings.Join(values, ", "))
	}

	if data.NumericalAnalysis != "" {
		b.WriteString("- Numerical analysis available\n")
	}
	if data.TextAnalysis != "" {
		b.WriteString("- Text analysis available\n")
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
