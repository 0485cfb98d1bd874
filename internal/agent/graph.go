package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lgraph "github.com/tmc/langgraphgo/graph"

	"github.com/calderasoft/patternrag/internal/common"
	"github.com/calderasoft/patternrag/internal/llm/providers"
	"github.com/calderasoft/patternrag/internal/retriever"
)

// GenerateResult is the output of one end-to-end generation run.
type GenerateResult struct {
	Answer     string                      `json:"answer"`
	Analysis   *retriever.QueryAnalysis    `json:"analysis"`
	Candidates []retriever.CandidateResult `json:"candidates"`
}

// Runner drives the analyze, retrieve, generate pipeline as a message
// graph. The analysis and candidates of a run are captured alongside the
// generated answer so callers can inspect why a pattern was picked.
type Runner struct {
	provider providers.Provider
	retr     *retriever.Retriever
	analyzer *Analyzer
}

// NewRunner builds a pipeline runner over the given retriever and model
// backend.
func NewRunner(provider providers.Provider, retr *retriever.Retriever) (*Runner, error) {
	if provider == nil {
		return nil, fmt.Errorf("agent: provider required")
	}
	if retr == nil {
		return nil, fmt.Errorf("agent: retriever required")
	}
	return &Runner{provider: provider, retr: retr, analyzer: NewAnalyzer()}, nil
}

// Run executes the pipeline for query. dataFields names the fields in
// the caller's data payload; data is the raw payload forwarded to the
// generation prompt.
func (r *Runner) Run(ctx context.Context, query string, dataFields []string, data json.RawMessage) (*GenerateResult, error) {
	logger := common.Logger()
	result := &GenerateResult{}

	g := lgraph.NewMessageGraph()
	g.AddNode("analyze", func(ctx context.Context, state []llms.MessageContent) ([]llms.MessageContent, error) {
		result.Analysis = r.analyzer.Analyze(query)
		return state, nil
	})
	g.AddNode("retrieve", func(ctx context.Context, state []llms.MessageContent) ([]llms.MessageContent, error) {
		candidates, err := r.retr.Retrieve(ctx, query, result.Analysis, dataFields, 3)
		if err != nil {
			return nil, err
		}
		result.Candidates = candidates
		return state, nil
	})
	g.AddNode("generate", func(ctx context.Context, state []llms.MessageContent) ([]llms.MessageContent, error) {
		answer, err := r.generate(ctx, query, data, result.Candidates)
		if err != nil {
			return nil, err
		}
		return append(state, llms.TextParts(llms.ChatMessageTypeAI, answer)), nil
	})
	g.AddEdge("analyze", "retrieve")
	g.AddEdge("retrieve", "generate")
	g.AddEdge("generate", lgraph.END)
	g.SetEntryPoint("analyze")

	runnable, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("agent: compile pipeline: %w", err)
	}
	state, err := runnable.Invoke(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	})
	if err != nil {
		return nil, err
	}
	result.Answer = lastAIText(state)
	logger.Info("agent: pipeline complete", "candidates", len(result.Candidates))
	return result, nil
}

func (r *Runner) generate(ctx context.Context, query string, data json.RawMessage, candidates []retriever.CandidateResult) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", query)
	if len(candidates) > 0 {
		top := candidates[0]
		fmt.Fprintf(&b, "Selected pattern: %s (confidence %.2f)\n", top.PatternID, top.Confidence)
		if top.Pattern != nil && len(top.Pattern.Structure) > 0 {
			fmt.Fprintf(&b, "Pattern structure:\n%s\n", string(top.Pattern.Structure))
		}
		if len(top.MissingRequiredFields) > 0 {
			fmt.Fprintf(&b, "Missing required fields: %s\n", strings.Join(top.MissingRequiredFields, ", "))
		}
	}
	if len(data) > 0 {
		fmt.Fprintf(&b, "Data:\n%s\n", string(data))
	}
	return r.provider.Chat(ctx, []providers.Message{
		{Role: "system", Content: "You render UI layouts. Fill the given pattern structure with the provided data and return the populated layout as JSON."},
		{Role: "user", Content: b.String()},
	})
}

func lastAIText(state []llms.MessageContent) string {
	for i := len(state) - 1; i >= 0; i-- {
		if state[i].Role != llms.ChatMessageTypeAI {
			continue
		}
		for _, part := range state[i].Parts {
			if text, ok := part.(llms.TextContent); ok {
				return text.Text
			}
		}
	}
	return ""
}
