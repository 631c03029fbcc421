package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/agentgraph"
	"github.com/ZanzyTHEbar/agentgraph/internal/tools"
)

var (
	feasibilityPattern = regexp.MustCompile(`feasibility.*?(\d*\.?\d+)`)
	impactPattern      = regexp.MustCompile(`impact.*?(\d*\.?\d+)`)
	riskPattern        = regexp.MustCompile(`risk.*?(\d*\.?\d+)`)
)

const maxOptions = 3

// DecisionMaker generates candidate options, scores them and selects the best
// one, gathering supplementary search context when confidence is low.
type DecisionMaker struct {
	base
	gateway agentgraph.ModelGateway
	search  agentgraph.SearchTool

	confidenceThreshold float64
	requireValidation   bool
	maxSearchResults    int
}

// NewDecisionMaker creates the decision maker agent.
func NewDecisionMaker(gateway agentgraph.ModelGateway, search agentgraph.SearchTool, cfg agentgraph.Config) *DecisionMaker {
	d := &DecisionMaker{
		base: base{
			name:        agentgraph.AgentDecisionMaker,
			description: "Evaluates options and makes validated decisions",
			capabilities: []string{
				"option generation",
				"option evaluation",
				"decision selection",
				"web validation",
			},
			wrapErr: agentgraph.NewDecisionMakingError,
		},
		gateway:             gateway,
		search:              search,
		confidenceThreshold: cfg.ConfidenceThreshold,
		requireValidation:   cfg.RequireValidation,
		maxSearchResults:    cfg.MaxSearchResults,
	}
	return d
}

// Execute evaluates decision options for the query and records the selection.
func (d *DecisionMaker) Execute(ctx context.Context, st *agentgraph.State) error {
	return d.run(ctx, st, d.process)
}

func (d *DecisionMaker) process(ctx context.Context, st *agentgraph.State) error {
	dataSummary := summarizeProcessedData(st.ProcessedData)

	options, err := d.generateOptions(ctx, st.Query, dataSummary)
	if err != nil {
		return err
	}
	log.Printf("Generated %d decision options", len(options))

	evaluations := make([]agentgraph.OptionEvaluation, 0, len(options))
	for _, option := range options {
		evaluation, err := d.evaluateOption(ctx, st.Query, option)
		if err != nil {
			return err
		}
		evaluations = append(evaluations, evaluation)
	}

	var best *agentgraph.OptionEvaluation
	bestScore := 0.0
	for i := range evaluations {
		if score := evaluations[i].Scores.Weighted(); score > bestScore {
			best = &evaluations[i]
			bestScore = score
		}
	}
	if best == nil {
		return fmt.Errorf("no viable option selected from %d evaluations", len(evaluations))
	}

	if bestScore < d.confidenceThreshold {
		log.Printf("Decision confidence %.2f below threshold %.2f, gathering additional context", bestScore, d.confidenceThreshold)
		// TODO: use the winning option's evaluation here instead of the first one.
		results, err := d.search.Search(ctx, "best practices "+evaluations[0].Description, d.maxSearchResults)
		if err != nil {
			return err
		}
		best.AdditionalContext = tools.FormatResults(results)
	}

	reasoning, err := d.gateway.Complete(ctx, fmt.Sprintf(
		"Explain in a short paragraph why this option best answers the query.\n\nQuery: %s\n\nSelected option: %s\n\nEvaluation: %s",
		st.Query, best.Description, best.Evaluation))
	if err != nil {
		return err
	}

	decision := &agentgraph.Decision{
		Selected:               best,
		Confidence:             bestScore,
		Reasoning:              strings.TrimSpace(reasoning),
		AlternativesConsidered: len(evaluations),
	}

	if d.requireValidation {
		validation, err := d.validateDecision(ctx, st.Query, best)
		if err != nil {
			return err
		}
		decision.Validation = validation
	}

	st.Decisions = evaluations
	st.Metadata[agentgraph.MetaFinalDecision] = decision
	st.ConfidenceScores["decision_making"] = bestScore
	return nil
}

type decisionOption struct {
	id          string
	description string
}

// generateOptions asks the model for candidate approaches and splits them into
// at most three options.
func (d *DecisionMaker) generateOptions(ctx context.Context, query, dataSummary string) ([]decisionOption, error) {
	response, err := d.gateway.Complete(ctx, fmt.Sprintf(
		`Generate up to 3 distinct options for addressing this query.
Separate each option with a blank line.

Query: %s

Available data: %s`, query, dataSummary))
	if err != nil {
		return nil, err
	}

	options := []decisionOption{}
	for _, chunk := range strings.Split(response, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		options = append(options, decisionOption{
			id:          fmt.Sprintf("option_%d", len(options)+1),
			description: chunk,
		})
		if len(options) == maxOptions {
			break
		}
	}
	return options, nil
}

// evaluateOption scores a single option on feasibility, impact and risk.
func (d *DecisionMaker) evaluateOption(ctx context.Context, query string, option decisionOption) (agentgraph.OptionEvaluation, error) {
	response, err := d.gateway.Complete(ctx, fmt.Sprintf(
		`Evaluate this option for the given query. Rate its feasibility, impact, and risk each on a scale of 0 to 1, and explain briefly.

Query: %s

Option: %s`, query, option.description))
	if err != nil {
		return agentgraph.OptionEvaluation{}, err
	}

	return agentgraph.OptionEvaluation{
		OptionID:    option.id,
		Description: option.description,
		Evaluation:  response,
		Scores:      extractScores(response),
	}, nil
}

// extractScores pulls the three axis scores out of free-form evaluation text.
// Scores above 1 are assumed to be on a 10-point scale; a missing axis
// defaults to the neutral 0.5.
func extractScores(evaluation string) agentgraph.ScoreSet {
	lower := strings.ToLower(evaluation)
	return agentgraph.ScoreSet{
		Feasibility: extractScore(feasibilityPattern, lower),
		Impact:      extractScore(impactPattern, lower),
		Risk:        extractScore(riskPattern, lower),
	}
}

func extractScore(pattern *regexp.Regexp, text string) float64 {
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return 0.5
	}
	score, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0.5
	}
	if score > 1 {
		score = score / 10
	}
	return score
}

// validateDecision checks the selected option against web search evidence.
func (d *DecisionMaker) validateDecision(ctx context.Context, query string, selected *agentgraph.OptionEvaluation) (string, error) {
	results, err := d.search.Search(ctx, query+" "+selected.Description, d.maxSearchResults)
	if err != nil {
		return "", err
	}

	response, err := d.gateway.Complete(ctx, fmt.Sprintf(
		"Based on the following search results, validate whether this decision is sound. Note any risks the evidence raises.\n\nDecision: %s\n\nEvidence:\n%s",
		selected.Description, tools.FormatResults(results)))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// summarizeProcessedData renders the data processor's output for use in
// prompts.
func summarizeProcessedData(data *agentgraph.ProcessedData) string {
	if data == nil {
		return "No data available"
	}
	if data.Analysis.Degraded {
		return data.Analysis.RawAnalysis
	}
	encoded, err := json.Marshal(data.Analysis.Structured)
	if err != nil {
		return "No data available"
	}
	return string(encoded)
}
