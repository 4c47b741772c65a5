package formatter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ostepan8/agentbus/aiclient"
	"github.com/ostepan8/agentbus/executor"
	"github.com/ostepan8/agentbus/protocol"
)

func TestFormatConcatenatesStepErrors(t *testing.T) {
	p := protocol.New("goodnight", "")
	result := executor.Result{
		Order: []string{"step_0_a", "step_1_b"},
		Steps: map[string]executor.StepOutcome{
			"step_0_a": {Error: "device offline"},
			"step_1_b": {Error: "timed out"},
		},
	}

	got := New().Format(context.Background(), p, result, nil)
	assert.Equal(t, "device offline timed out", got)
}

func TestFormatDefaultTemplateWhenResponseNil(t *testing.T) {
	p := protocol.New("goodnight routine", "")
	result := executor.Result{Order: []string{}, Steps: map[string]executor.StepOutcome{}}

	got := New().Format(context.Background(), p, result, nil)
	assert.Equal(t, "goodnight routine completed successfully.", got)
}

func TestFormatStaticModeSubstitutesArguments(t *testing.T) {
	p := protocol.New("set thermostat", "")
	p.Response = &protocol.ProtocolResponse{Mode: protocol.ResponseStatic, Phrases: []string{"Set to {temperature} degrees."}}
	result := executor.Result{Order: []string{}, Steps: map[string]executor.StepOutcome{}}

	got := New().Format(context.Background(), p, result, map[string]interface{}{"temperature": 68})
	assert.Equal(t, "Set to 68 degrees.", got)
}

type stubAIClient struct {
	response *aiclient.AIResponse
	err      error
}

func (s *stubAIClient) GenerateResponse(ctx context.Context, prompt string, options *aiclient.GenerationOptions) (*aiclient.AIResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func (s *stubAIClient) GetProviderInfo() aiclient.ProviderInfo {
	return aiclient.ProviderInfo{Name: "stub"}
}

func TestFormatAIModeReturnsCollaboratorContent(t *testing.T) {
	p := protocol.New("brief me", "")
	p.Response = &protocol.ProtocolResponse{Mode: protocol.ResponseAI, Prompt: "Summarize today for {user}."}
	result := executor.Result{Order: []string{}, Steps: map[string]executor.StepOutcome{}}

	f := New(WithAIClient(&stubAIClient{response: &aiclient.AIResponse{Content: "Here's your day."}}))
	got := f.Format(context.Background(), p, result, map[string]interface{}{"user": "Tony"})
	assert.Equal(t, "Here's your day.", got)
}

func TestFormatAIModeDegradesToPromptWhenUnavailable(t *testing.T) {
	p := protocol.New("brief me", "")
	p.Response = &protocol.ProtocolResponse{Mode: protocol.ResponseAI, Prompt: "Summarize today for {user}."}
	result := executor.Result{Order: []string{}, Steps: map[string]executor.StepOutcome{}}

	f := New() // default NoOpAIClient
	got := f.Format(context.Background(), p, result, map[string]interface{}{"user": "Tony"})
	assert.Equal(t, "Summarize today for Tony.", got)
}

func TestFormatStaticModeLeavesUnknownTokenLiteral(t *testing.T) {
	p := protocol.New("x", "")
	p.Response = &protocol.ProtocolResponse{Mode: protocol.ResponseStatic, Phrases: []string{"Value is {missing}."}}
	result := executor.Result{Order: []string{}, Steps: map[string]executor.StepOutcome{}}

	got := New().Format(context.Background(), p, result, nil)
	assert.Equal(t, "Value is {missing}.", got)
}
