package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/lblod/entity-linker/internal/models"
	"github.com/lblod/entity-linker/internal/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tmc/langchaingo/llms"
)

const systemPrompt = `You are an assistant that links named entities to their canonical URIs in Linked Data knowledge graphs.
Use the available tools to look up query examples and class schemas, then write SPARQL queries and execute them.
When you are done, reply with only a JSON object of this form:
{"results":[{"uri":"<entity URI>","label":"<entity label>","location":"<location or empty>","reasoning":"<why this entity matches>"}]}
Reply with {"results":[]} when no entity matches.`

// ToolSession lists and calls MCP tools. *mcp.ClientSession implements it.
type ToolSession interface {
	ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
}

var _ ToolSession = (*mcp.ClientSession)(nil)

// Options configures an LLMAgent.
type Options struct {
	MaxSteps     int
	Temperature  float64
	EnabledTools []string // nil enables every tool the session offers
	Metrics      *metrics.Collector
}

// LLMAgent runs a tool-calling loop against a chat model, using MCP tools for
// retrieval and query execution.
type LLMAgent struct {
	model   llms.Model
	session ToolSession
	opts    Options
	logger  *slog.Logger

	mu    sync.Mutex
	tools []llms.Tool
}

var _ Agent = (*LLMAgent)(nil)

// NewLLMAgent creates an agent. Tools are listed from session on first use.
func NewLLMAgent(model llms.Model, session ToolSession, opts Options, logger *slog.Logger) *LLMAgent {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 10
	}
	return &LLMAgent{model: model, session: session, opts: opts, logger: logger}
}

// Initialize lists the session's tools and keeps the enabled ones.
func (a *LLMAgent) Initialize(ctx context.Context) error {
	_, err := a.toolset(ctx)
	return err
}

func (a *LLMAgent) toolset(ctx context.Context) ([]llms.Tool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tools != nil {
		return a.tools, nil
	}

	res, err := a.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	defs := make([]llms.Tool, 0, len(res.Tools))
	var names []string
	for _, t := range res.Tools {
		if a.opts.EnabledTools != nil && !slices.Contains(a.opts.EnabledTools, t.Name) {
			continue
		}
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
		names = append(names, t.Name)
	}

	a.logger.Info("agent initialized", "tools", names)
	a.tools = defs
	return defs, nil
}

// RunStructured looks up the URI of one recognized entity.
func (a *LLMAgent) RunStructured(ctx context.Context, req models.LinkRequest) (*models.LinkResponse, error) {
	return a.Run(ctx, StructuredQuestion(req))
}

// Run answers question, calling tools until the model produces a final
// message or MaxSteps model turns have passed.
func (a *LLMAgent) Run(ctx context.Context, question string) (*models.LinkResponse, error) {
	defs, err := a.toolset(ctx)
	if err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	}
	callOpts := []llms.CallOption{llms.WithTemperature(a.opts.Temperature)}
	if len(defs) > 0 {
		callOpts = append(callOpts, llms.WithTools(defs))
	}

	for step := 1; step <= a.opts.MaxSteps; step++ {
		choice, err := a.generate(ctx, messages, callOpts)
		if err != nil {
			return nil, err
		}

		if len(choice.ToolCalls) == 0 {
			return parseResponse(choice.Content)
		}

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		for _, tc := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, tc)
		}
		messages = append(messages, assistant)

		for _, tc := range choice.ToolCalls {
			name, out, err := a.callTool(ctx, tc)
			if err != nil {
				return nil, err
			}
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       name,
					Content:    out,
				}},
			})
		}
	}
	return nil, fmt.Errorf("%w (%d)", ErrMaxSteps, a.opts.MaxSteps)
}

func (a *LLMAgent) generate(ctx context.Context, messages []llms.MessageContent, opts []llms.CallOption) (*llms.ContentChoice, error) {
	start := time.Now()
	resp, err := a.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", wrapFatalError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generate: no response choices")
	}

	choice := resp.Choices[0]
	in, out := tokenUsage(choice.GenerationInfo)
	a.opts.Metrics.RecordLLMUsage(metrics.OpAgentLLM, time.Since(start), in, out)
	return choice, nil
}

// callTool executes one tool call. Tool failures are returned to the model
// as text; only context errors abort the run.
func (a *LLMAgent) callTool(ctx context.Context, tc llms.ToolCall) (name, out string, err error) {
	if tc.FunctionCall == nil {
		return "", "Tool call without function name", nil
	}
	name = tc.FunctionCall.Name

	args := json.RawMessage(tc.FunctionCall.Arguments)
	if len(strings.TrimSpace(tc.FunctionCall.Arguments)) == 0 {
		args = json.RawMessage("{}")
	}

	a.logger.Debug("invoking tool", "tool", name, "args", tc.FunctionCall.Arguments)

	res, err := a.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		if ctx.Err() != nil {
			return name, "", ctx.Err()
		}
		a.logger.Warn("tool call failed", "tool", name, "error", err)
		return name, fmt.Sprintf("Tool %s failed: %v", name, err), nil
	}
	return name, tools.ResultText(res), nil
}

// parseResponse decodes the final JSON answer, tolerating a fenced code block
// or surrounding prose.
func parseResponse(content string) (*models.LinkResponse, error) {
	text := strings.TrimSpace(content)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in %q", ErrInvalidResponse, truncate(text, 200))
	}

	var resp models.LinkResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return &resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// tokenUsage reads token counts from provider specific generation info.
func tokenUsage(info map[string]any) (in, out int64) {
	return firstInt(info, "PromptTokens", "InputTokens", "input_tokens"),
		firstInt(info, "CompletionTokens", "OutputTokens", "output_tokens")
}

func firstInt(info map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
