// Package formatter renders a protocol's execution result as a reply:
// error concatenation, template substitution across the three response
// modes, and AI-collaborator delegation with graceful degradation. The
// ai mode issues a single-user-turn prompt through the aiclient package.
package formatter

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/ostepan8/agentbus/aiclient"
	"github.com/ostepan8/agentbus/executor"
	"github.com/ostepan8/agentbus/protocol"
)

var argToken = regexp.MustCompile(`\{([^{}]+)\}`)

// Formatter renders a human-facing response from a protocol's declared
// response rule and an executor result.
type Formatter struct {
	ai aiclient.AIClient
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithAIClient attaches the collaborator used for `ai` response mode.
// Omit to fall back to aiclient.NoOpAIClient (always "unavailable").
func WithAIClient(client aiclient.AIClient) Option {
	return func(f *Formatter) { f.ai = client }
}

// New builds a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{ai: aiclient.NoOpAIClient{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format renders the response text for p given the executor's result and
// the extracted protocol arguments.
func (f *Formatter) Format(ctx context.Context, p *protocol.Protocol, result executor.Result, arguments map[string]interface{}) string {
	if errs := collectErrors(result); len(errs) > 0 {
		return strings.Join(errs, " ")
	}

	if p.Response == nil {
		return substitute(fmt.Sprintf("%s completed successfully.", p.Name), arguments)
	}

	switch p.Response.Mode {
	case protocol.ResponseStatic:
		return f.formatStatic(p.Response, arguments)
	case protocol.ResponseAI:
		return f.formatAI(ctx, p.Response, arguments)
	default:
		return substitute(fmt.Sprintf("%s completed successfully.", p.Name), arguments)
	}
}

func collectErrors(result executor.Result) []string {
	var errs []string
	for _, key := range result.Order {
		if outcome, ok := result.Steps[key]; ok && outcome.Error != "" {
			errs = append(errs, outcome.Error)
		}
	}
	return errs
}

func (f *Formatter) formatStatic(resp *protocol.ProtocolResponse, arguments map[string]interface{}) string {
	if len(resp.Phrases) == 0 {
		return ""
	}
	phrase := resp.Phrases[0]
	if len(resp.Phrases) > 1 {
		phrase = resp.Phrases[rand.Intn(len(resp.Phrases))]
	}
	return substitute(phrase, arguments)
}

func (f *Formatter) formatAI(ctx context.Context, resp *protocol.ProtocolResponse, arguments map[string]interface{}) string {
	prompt := substitute(resp.Prompt, arguments)
	if f.ai == nil {
		return prompt
	}
	aiResp, err := f.ai.GenerateResponse(ctx, prompt, nil)
	if err != nil {
		return prompt
	}
	return aiResp.Content
}

func substitute(template string, arguments map[string]interface{}) string {
	return argToken.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		if value, ok := arguments[name]; ok {
			return fmt.Sprint(value)
		}
		return token
	})
}
