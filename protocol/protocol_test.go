package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "blue lights on", Normalize("  Blue, Lights ON!  "))
}

func TestNormalizedTriggerSetDedupesAndSorts(t *testing.T) {
	p := &Protocol{TriggerPhrases: []string{"Blue Lights!", "blue   lights", "Red Lights"}}
	set := p.NormalizedTriggerSet()
	assert.Equal(t, []string{"blue lights", "red lights"}, set)
}

func TestJSONRoundTrip(t *testing.T) {
	original := NewBuilder("blue_lights_on").
		Description("turns the lights blue").
		TriggerPhrases("blue lights", "make it blue").
		Argument("room", "living_room").
		ArgumentDefinition(ArgumentDefinition{Name: "room", Type: ArgumentText, Required: false}).
		Step("Lights", "set_color_name", map[string]interface{}{"color_name": "blue"}, nil).
		StaticResponse("Lights are blue now.").
		Build()

	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Protocol
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.Equal(t, original.Name, decoded.Name)
	assert.Equal(t, original.TriggerPhrases, decoded.TriggerPhrases)
	assert.Equal(t, original.Steps, decoded.Steps)
	assert.Equal(t, original.Response, decoded.Response)
	assert.Equal(t, original.ArgumentDefinitions, decoded.ArgumentDefinitions)
}
