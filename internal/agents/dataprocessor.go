package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/agentgraph"
	"github.com/sourcegraph/conc/pool"
)

var (
	entityPattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	numberPattern = regexp.MustCompile(`\b\d+\.?\d*\b`)
	datePattern   = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	emailPattern  = regexp.MustCompile(`\b[\w.-]+@[\w.-]+\.\w+\b`)
	digitPattern  = regexp.MustCompile(`\d`)
)

// DataProcessor extracts structure from the raw query and runs the model's
// analysis passes over it.
type DataProcessor struct {
	base
	gateway agentgraph.ModelGateway
}

// NewDataProcessor creates the data processor agent.
func NewDataProcessor(gateway agentgraph.ModelGateway) *DataProcessor {
	d := &DataProcessor{
		base: base{
			name:        agentgraph.AgentDataProcessor,
			description: "Analyzes queries and extracts structured data",
			capabilities: []string{
				"query analysis",
				"entity extraction",
				"numerical analysis",
				"text analysis",
			},
			wrapErr: agentgraph.NewDataProcessingError,
		},
		gateway: gateway,
	}
	return d
}

// Execute analyzes the query and attaches the processed data to the state.
func (d *DataProcessor) Execute(ctx context.Context, st *agentgraph.State) error {
	return d.run(ctx, st, d.process)
}

func (d *DataProcessor) process(ctx context.Context, st *agentgraph.State) error {
	query := st.Query

	response, err := d.gateway.Complete(ctx, fmt.Sprintf(
		`Analyze the following query and extract key information.
Respond in JSON format with these fields:
- main_topic: the primary subject of the query
- key_requirements: list of requirements or constraints
- data_mentioned: any specific data, numbers, or facts referenced
- complexity: low, medium, or high

Query: %s`, query))
	if err != nil {
		return err
	}

	data := &agentgraph.ProcessedData{
		RawQuery:   query,
		Analysis:   parseAnalysis(response),
		Entities:   extractEntities(query),
		DataPoints: extractDataPoints(query),
	}

	runNumerical := digitPattern.MatchString(query)
	runText := len(strings.Fields(query)) > 5

	plan, _ := st.RoutingDecision()
	if plan.ParallelProcessing && runNumerical && runText {
		var numerical, text string
		p := pool.New().WithErrors().WithContext(ctx)
		p.Go(func(ctx context.Context) error {
			result, err := d.analyzeNumerical(ctx, query)
			numerical = result
			return err
		})
		p.Go(func(ctx context.Context) error {
			result, err := d.analyzeText(ctx, query)
			text = result
			return err
		})
		if err := p.Wait(); err != nil {
			return err
		}
		data.NumericalAnalysis = numerical
		data.TextAnalysis = text
	} else {
		if runNumerical {
			if data.NumericalAnalysis, err = d.analyzeNumerical(ctx, query); err != nil {
				return err
			}
		}
		if runText {
			if data.TextAnalysis, err = d.analyzeText(ctx, query); err != nil {
				return err
			}
		}
	}

	st.ProcessedData = data
	st.ConfidenceScores["data_processing"] = 0.85
	return nil
}

func (d *DataProcessor) analyzeNumerical(ctx context.Context, query string) (string, error) {
	return d.gateway.Complete(ctx, fmt.Sprintf(
		"Identify and analyze any numerical data in this query. Describe what calculations or comparisons might be relevant.\n\nQuery: %s", query))
}

func (d *DataProcessor) analyzeText(ctx context.Context, query string) (string, error) {
	return d.gateway.Complete(ctx, fmt.Sprintf(
		"Summarize the intent and tone of this query in two sentences.\n\nQuery: %s", query))
}

// parseAnalysis interprets the model's analysis response. Non-JSON output is
// kept as raw degraded text rather than treated as an error.
func parseAnalysis(response string) agentgraph.Analysis {
	var structured map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &structured); err == nil {
		return agentgraph.Analysis{Structured: structured}
	}
	return agentgraph.Analysis{RawAnalysis: response, Degraded: true}
}

// extractEntities pulls capitalized words from the query, deduplicated with
// first-occurrence order preserved.
func extractEntities(query string) []string {
	seen := make(map[string]bool)
	entities := []string{}
	for _, match := range entityPattern.FindAllString(query, -1) {
		if !seen[match] {
			seen[match] = true
			entities = append(entities, match)
		}
	}
	return entities
}

// extractDataPoints collects numbers, dates and emails mentioned in the query.
// Keys are only present when at least one match exists.
func extractDataPoints(query string) map[string][]string {
	points := make(map[string][]string)
	if numbers := numberPattern.FindAllString(query, -1); len(numbers) > 0 {
		points["numbers"] = numbers
	}
	if dates := datePattern.FindAllString(query, -1); len(dates) > 0 {
		points["dates"] = dates
	}
	if emails := emailPattern.FindAllString(query, -1); len(emails) > 0 {
		points["emails"] = emails
	}
	return points
}
