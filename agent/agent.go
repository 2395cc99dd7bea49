package agent

import (
	"context"
	"fmt"

	"github.com/atharvparlikar/pollux/config"
	"github.com/atharvparlikar/pollux/llm"
	"github.com/atharvparlikar/pollux/session"
	"github.com/atharvparlikar/pollux/tools"
)

// Mode controls whether tool calls run automatically or require
// confirmation from the frontend.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModePrompt Mode = "prompt"
)

// ToolVerbosity controls how much tool activity the frontend shows.
type ToolVerbosity string

const (
	ToolVerbosityNone ToolVerbosity = "none"
	ToolVerbosityInfo ToolVerbosity = "info"
	ToolVerbosityAll  ToolVerbosity = "all"
)

// maxToolRounds bounds the LLM -> tool -> LLM loop for a single user turn
// so a misbehaving model cannot spin forever.
const maxToolRounds = 25

// ProcessCallbacks lets a frontend (terminal, websocket bridge) observe and
// steer a turn without the agent knowing how it is rendered.
type ProcessCallbacks struct {
	// OnAssistantMessage is called for each text response from the LLM.
	OnAssistantMessage func(message string)
	// OnToolCall is called before a tool is executed.
	OnToolCall func(toolCall session.ToolCall)
	// OnToolResult is called with the output of an executed tool.
	OnToolResult func(toolCall session.ToolCall, result string)
	// ShouldExecuteTool gates tool execution. If nil, tools always run.
	ShouldExecuteTool func(toolCall session.ToolCall) bool
	// OnWarning reports non-fatal problems such as a failed session save.
	OnWarning func(warning string)
}

// Agent drives the conversation loop between the user, the LLM and the
// active toolset.
type Agent struct {
	Config         *config.Config
	Session        *session.Session
	LLMClient      llm.LLMClient
	AvailableTools []tools.Tool
	Mode           Mode
	Verbosity      ToolVerbosity

	registry *tools.ToolRegistry
}

func New(cfg *config.Config, sess *session.Session, toolset string, mode Mode, client llm.LLMClient, verbosity ToolVerbosity) (*Agent, error) {
	ts, err := cfg.GetToolset(toolset)
	if err != nil {
		return nil, err
	}

	registry := tools.NewToolRegistry(cfg)
	activeTools, err := registry.GetActiveTools(ts)
	if err != nil {
		registry.Stop()
		return nil, err
	}

	return &Agent{
		Config:         cfg,
		Session:        sess,
		LLMClient:      client,
		AvailableTools: activeTools,
		Mode:           mode,
		Verbosity:      verbosity,
		registry:       registry,
	}, nil
}

// Stop shuts down the agent's tool backends.
func (a *Agent) Stop() {
	if a.registry != nil {
		a.registry.Stop()
	}
}

// ProcessUserInput runs one user turn: it sends the conversation to the
// LLM, executes any tool calls the LLM requests, feeds the results back,
// and repeats until the LLM answers with plain text.
func (a *Agent) ProcessUserInput(ctx context.Context, userInput string, callbacks ProcessCallbacks) error {
	a.Session.AddMessage(session.Message{Role: "user", Content: userInput})

	for round := 0; round < maxToolRounds; round++ {
		assistantResponse, err := a.LLMClient.Chat(ctx, a.Session.Messages, a.AvailableTools)
		if err != nil {
			return fmt.Errorf("LLM chat failed: %w", err)
		}

		a.Session.AddMessage(*assistantResponse)

		if assistantResponse.Content != "" && callbacks.OnAssistantMessage != nil {
			callbacks.OnAssistantMessage(assistantResponse.Content)
		}

		if len(assistantResponse.ToolCalls) == 0 {
			a.saveSession(callbacks)
			return nil
		}

		for _, toolCall := range assistantResponse.ToolCalls {
			result := a.executeToolCall(ctx, toolCall, callbacks)
			a.Session.AddMessage(session.Message{
				Role:      "tool",
				Content:   result,
				ToolCalls: []session.ToolCall{toolCall},
			})
		}

		a.saveSession(callbacks)
	}

	return fmt.Errorf("turn aborted after %d tool rounds without a final answer", maxToolRounds)
}

func (a *Agent) executeToolCall(ctx context.Context, toolCall session.ToolCall, callbacks ProcessCallbacks) string {
	if callbacks.OnToolCall != nil {
		callbacks.OnToolCall(toolCall)
	}

	if callbacks.ShouldExecuteTool != nil && !callbacks.ShouldExecuteTool(toolCall) {
		return "Tool execution was denied by the user."
	}

	tool, ok := a.findTool(toolCall.Name)
	if !ok {
		return fmt.Sprintf("Error: tool '%s' is not in the active toolset.", toolCall.Name)
	}

	result, err := tool.Execute(ctx, toolCall.Args)
	if err != nil {
		result = fmt.Sprintf("Error executing tool '%s': %v", toolCall.Name, err)
	}

	if callbacks.OnToolResult != nil {
		callbacks.OnToolResult(toolCall, result)
	}
	return result
}

func (a *Agent) findTool(name string) (tools.Tool, bool) {
	for _, t := range a.AvailableTools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

func (a *Agent) saveSession(callbacks ProcessCallbacks) {
	if err := a.Session.Save(); err != nil && callbacks.OnWarning != nil {
		callbacks.OnWarning(fmt.Sprintf("failed to save session: %v", err))
	}
}
