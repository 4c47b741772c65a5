package orchestrator

import (
	"encoding/json"
	"time"
)

// AgentProfile is the per-user state carried through request metadata
// under the "profile" key. A request carrying one replaces whatever was
// stored for that user; requests without one reuse the stored profile.
type AgentProfile struct {
	DisplayName          string    `json:"display_name,omitempty"`
	PreferredPersonality string    `json:"preferred_personality,omitempty"`
	Interests            []string  `json:"interests,omitempty"`
	ConversationStyle    string    `json:"conversation_style,omitempty"`
	HumorPreference      string    `json:"humor_preference,omitempty"`
	TopicsOfInterest     []string  `json:"topics_of_interest,omitempty"`
	LanguagePreference   string    `json:"language_preference,omitempty"`
	InteractionCount     int       `json:"interaction_count,omitempty"`
	LastSeen             time.Time `json:"last_seen,omitempty"`
	RequiredResources    []string  `json:"required_resources,omitempty"`
}

// UserConfig carries per-user wiring for external collaborators. The
// core never interprets these values; they ride along with the profile
// so concrete capability providers can pick them up.
type UserConfig struct {
	OpenAIAPIKey    string `json:"openai_api_key,omitempty"`
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty"`
	CalendarAPIURL  string `json:"calendar_api_url,omitempty"`
	WeatherAPIKey   string `json:"weather_api_key,omitempty"`
	HueBridgeIP     string `json:"hue_bridge_ip,omitempty"`
	HueUsername     string `json:"hue_username,omitempty"`
	RokuIPAddress   string `json:"roku_ip_address,omitempty"`
	RokuUsername    string `json:"roku_username,omitempty"`
	RokuPassword    string `json:"roku_password,omitempty"`
}

// parseAgentProfile converts the loosely typed metadata payload into an
// AgentProfile via a JSON round trip, so unknown keys are ignored and
// missing keys zero-filled.
func parseAgentProfile(raw map[string]interface{}) (*AgentProfile, bool) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var p AgentProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// touch records one more interaction for this profile.
func (p *AgentProfile) touch(now time.Time) {
	p.InteractionCount++
	p.LastSeen = now
}
