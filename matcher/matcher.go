// Package matcher builds an index from normalized trigger phrase to
// protocol and resolves an utterance against it, extracting and coercing
// typed arguments from templated placeholders.
package matcher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ostepan8/agentbus/protocol"
)

// Match is the result of a successful trigger match.
type Match struct {
	Protocol      *protocol.Protocol
	Arguments     map[string]interface{}
	MatchedPhrase string
}

type literalEntry struct {
	protocol *protocol.Protocol
	phrase   string
}

type templatedEntry struct {
	protocol *protocol.Protocol
	phrase   string
	pattern  *regexp.Regexp
	argNames []string
}

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// TriggerMatcher indexes registered protocols' trigger phrases for
// matching. Literal (no-placeholder) phrases are tried first; templated
// phrases next; within each category, first-registered wins.
type TriggerMatcher struct {
	literals  []literalEntry
	templated []templatedEntry
}

// New builds a TriggerMatcher over the given protocols, preserving their
// order (the caller is expected to pass registry.ListIDs()-ordered or
// otherwise stable input when registration order matters).
func New(protocols []*protocol.Protocol) *TriggerMatcher {
	m := &TriggerMatcher{}
	for _, p := range protocols {
		m.index(p)
	}
	return m
}

func (m *TriggerMatcher) index(p *protocol.Protocol) {
	for _, phrase := range p.TriggerPhrases {
		normalized := normalizeUtterance(phrase)
		if !placeholderPattern.MatchString(normalized) {
			m.literals = append(m.literals, literalEntry{protocol: p, phrase: phrase})
			continue
		}
		pattern, argNames := compileTemplate(normalized)
		m.templated = append(m.templated, templatedEntry{protocol: p, phrase: phrase, pattern: pattern, argNames: argNames})
	}
}

func normalizeUtterance(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// compileTemplate converts a normalized phrase containing `{name}`
// placeholders into an anchored regex with one named capture group per
// placeholder, and returns the ordered argument names.
func compileTemplate(normalized string) (*regexp.Regexp, []string) {
	var argNames []string
	var sb strings.Builder
	sb.WriteString("^")

	last := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(normalized, -1) {
		start, end := loc[0], loc[1]
		name := normalized[loc[2]:loc[3]]
		argNames = append(argNames, name)

		sb.WriteString(regexp.QuoteMeta(normalized[last:start]))
		sb.WriteString(fmt.Sprintf("(?P<%s>.+?)", name))
		last = end
	}
	sb.WriteString(regexp.QuoteMeta(normalized[last:]))
	sb.WriteString("$")

	return regexp.MustCompile(sb.String()), argNames
}

// Match resolves utterance against the index: literal phrases first, then
// templated phrases, each in registration order. Typed coercion against
// the matched protocol's ArgumentDefinitions happens after a textual
// match; a coercion failure or a missing required argument makes the
// overall match fail, trying no further candidates within the same
// category once one textually matches (a templated hit is final even if
// coercion later fails).
func (m *TriggerMatcher) Match(utterance string) (*Match, bool) {
	normalized := normalizeUtterance(utterance)

	for _, entry := range m.literals {
		if normalizeUtterance(entry.phrase) == normalized {
			return &Match{Protocol: entry.protocol, Arguments: mergedDefaults(entry.protocol, nil), MatchedPhrase: entry.phrase}, true
		}
	}

	for _, entry := range m.templated {
		groups := entry.pattern.FindStringSubmatch(normalized)
		if groups == nil {
			continue
		}
		raw := make(map[string]string, len(entry.argNames))
		for _, name := range entry.argNames {
			raw[name] = groups[entry.pattern.SubexpIndex(name)]
		}
		coerced, ok := coerceArguments(entry.protocol, raw)
		if !ok {
			return nil, false
		}
		return &Match{Protocol: entry.protocol, Arguments: mergedDefaults(entry.protocol, coerced), MatchedPhrase: entry.phrase}, true
	}

	return nil, false
}

func mergedDefaults(p *protocol.Protocol, extracted map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(p.Arguments)+len(extracted))
	for k, v := range p.Arguments {
		out[k] = v
	}
	for k, v := range extracted {
		out[k] = v
	}
	return out
}

// coerceArguments applies the typed coercion rules to every captured raw
// value, using the protocol's argument definitions.
// Returns false (no match) on a coercion failure or missing required arg.
func coerceArguments(p *protocol.Protocol, raw map[string]string) (map[string]interface{}, bool) {
	defs := make(map[string]protocol.ArgumentDefinition, len(p.ArgumentDefinitions))
	for _, def := range p.ArgumentDefinitions {
		defs[def.Name] = def
	}

	out := make(map[string]interface{}, len(raw))
	for name, value := range raw {
		def, hasDef := defs[name]
		if !hasDef {
			out[name] = value
			continue
		}
		coerced, ok := coerceOne(def, value)
		if !ok {
			return nil, false
		}
		out[name] = coerced
	}

	for _, def := range p.ArgumentDefinitions {
		if def.Required {
			if _, ok := out[def.Name]; !ok {
				return nil, false
			}
		}
	}
	return out, true
}

func coerceOne(def protocol.ArgumentDefinition, value string) (interface{}, bool) {
	switch def.Type {
	case protocol.ArgumentChoice:
		for _, choice := range def.Choices {
			if strings.EqualFold(choice, value) {
				return choice, true
			}
		}
		return nil, false
	case protocol.ArgumentRange:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, false
		}
		if def.Min != nil && n < *def.Min {
			return nil, false
		}
		if def.Max != nil && n > *def.Max {
			return nil, false
		}
		return n, true
	case protocol.ArgumentBoolean:
		switch strings.ToLower(value) {
		case "true", "yes", "on":
			return true, true
		case "false", "no", "off":
			return false, true
		default:
			return nil, false
		}
	case protocol.ArgumentText, "":
		return value, true
	default:
		return value, true
	}
}
