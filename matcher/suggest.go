package matcher

import (
	"strings"

	"github.com/ostepan8/agentbus/protocol"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "of": {}, "and": {}, "or": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "in": {}, "with": {}, "your": {},
}

// SuggestTriggerPhrases proposes additional candidate trigger phrases for
// a protocol by tokenizing its description. Deliberately a deterministic
// heuristic rather than an AI call, since no AI collaborator is
// guaranteed to be configured at matcher-build time.
// Candidates already present (after normalization) are excluded.
func SuggestTriggerPhrases(p *protocol.Protocol) []string {
	existing := make(map[string]struct{}, len(p.TriggerPhrases))
	for _, phrase := range p.TriggerPhrases {
		existing[protocol.Normalize(phrase)] = struct{}{}
	}

	words := strings.Fields(strings.ToLower(p.Description))
	var keywords []string
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:")
		if w == "" {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		keywords = append(keywords, w)
	}

	var suggestions []string
	for i := 0; i+1 < len(keywords); i++ {
		candidate := keywords[i] + " " + keywords[i+1]
		normalized := protocol.Normalize(candidate)
		if _, ok := existing[normalized]; ok {
			continue
		}
		existing[normalized] = struct{}{}
		suggestions = append(suggestions, candidate)
	}
	return suggestions
}
