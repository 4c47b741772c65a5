// Package protocol defines the declarative workflow data model: steps,
// argument definitions, response rendering rules, and the protocol itself.
package protocol

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ArgumentType enumerates the coercion rules the matcher applies to a
// captured placeholder value.
type ArgumentType string

const (
	ArgumentChoice  ArgumentType = "choice"
	ArgumentRange   ArgumentType = "range"
	ArgumentText    ArgumentType = "text"
	ArgumentBoolean ArgumentType = "boolean"
)

// ArgumentDefinition describes one named, typed argument a protocol's
// trigger phrases may capture.
type ArgumentDefinition struct {
	Name        string       `json:"name"`
	Type        ArgumentType `json:"type"`
	Choices     []string     `json:"choices,omitempty"`
	Min         *int         `json:"min,omitempty"`
	Max         *int         `json:"max,omitempty"`
	Required    bool         `json:"required"`
	Description string       `json:"description,omitempty"`
}

// ProtocolStep is a pure value: one dispatch against a provider, with
// literal defaults and reference expressions resolved at execution time.
type ProtocolStep struct {
	Agent             string                 `json:"agent"`
	Function          string                 `json:"function"`
	Parameters        map[string]interface{} `json:"parameters,omitempty"`
	ParameterMappings map[string]string      `json:"parameter_mappings,omitempty" yaml:"parameter_mappings,omitempty"`
}

// ResponseMode selects how a ProtocolResponse is rendered.
type ResponseMode string

const (
	ResponseStatic ResponseMode = "static"
	ResponseAI     ResponseMode = "ai"
)

// ProtocolResponse configures the Response Formatter for a protocol.
type ProtocolResponse struct {
	Mode    ResponseMode `json:"mode"`
	Phrases []string     `json:"phrases,omitempty"`
	Prompt  string       `json:"prompt,omitempty"`
}

// Protocol is a named, triggerable sequence of steps.
type Protocol struct {
	ID                  string                 `json:"id"`
	Name                string                 `json:"name"`
	Description         string                 `json:"description,omitempty"`
	Arguments           map[string]interface{} `json:"arguments,omitempty"`
	TriggerPhrases      []string               `json:"trigger_phrases"`
	Steps               []ProtocolStep         `json:"steps"`
	ArgumentDefinitions []ArgumentDefinition   `json:"argument_definitions,omitempty"`
	Response            *ProtocolResponse      `json:"response,omitempty"`
}

// New constructs a Protocol with a generated ID.
func New(name, description string) *Protocol {
	return &Protocol{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
	}
}

var punctuation = regexp.MustCompile(`[^\w\s]`)
var whitespace = regexp.MustCompile(`\s+`)

// Normalize applies the canonical normalization used for both protocol
// names and trigger phrases: lowercase, punctuation-stripped,
// whitespace-collapsed, trimmed.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = punctuation.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizedName is the protocol's name under the registry's uniqueness
// normalization: lowercase + trimmed. No punctuation stripping for
// names, only for trigger phrases.
func (p *Protocol) NormalizedName() string {
	return strings.TrimSpace(strings.ToLower(p.Name))
}

// NormalizedTriggerSet returns the deduplicated, sorted, normalized set of
// trigger phrases used for cross-protocol uniqueness comparison.
func (p *Protocol) NormalizedTriggerSet() []string {
	seen := make(map[string]struct{}, len(p.TriggerPhrases))
	for _, phrase := range p.TriggerPhrases {
		seen[Normalize(phrase)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for phrase := range seen {
		out = append(out, phrase)
	}
	sort.Strings(out)
	return out
}
