package protocol

// Builder assembles a Protocol fluently. Each setter returns the builder
// for chaining. Start one with NewBuilder; the zero value holds no
// Protocol and is not usable.
type Builder struct {
	protocol *Protocol
}

// NewBuilder starts a Protocol builder for the given name.
func NewBuilder(name string) *Builder {
	return &Builder{protocol: New(name, "")}
}

func (b *Builder) Description(description string) *Builder {
	b.protocol.Description = description
	return b
}

func (b *Builder) TriggerPhrases(phrases ...string) *Builder {
	b.protocol.TriggerPhrases = append(b.protocol.TriggerPhrases, phrases...)
	return b
}

func (b *Builder) Argument(name string, defaultValue interface{}) *Builder {
	if b.protocol.Arguments == nil {
		b.protocol.Arguments = map[string]interface{}{}
	}
	b.protocol.Arguments[name] = defaultValue
	return b
}

func (b *Builder) ArgumentDefinition(def ArgumentDefinition) *Builder {
	b.protocol.ArgumentDefinitions = append(b.protocol.ArgumentDefinitions, def)
	return b
}

func (b *Builder) Step(agent, function string, parameters map[string]interface{}, mappings map[string]string) *Builder {
	b.protocol.Steps = append(b.protocol.Steps, ProtocolStep{
		Agent:             agent,
		Function:          function,
		Parameters:        parameters,
		ParameterMappings: mappings,
	})
	return b
}

func (b *Builder) StaticResponse(phrases ...string) *Builder {
	b.protocol.Response = &ProtocolResponse{Mode: ResponseStatic, Phrases: phrases}
	return b
}

func (b *Builder) AIResponse(prompt string) *Builder {
	b.protocol.Response = &ProtocolResponse{Mode: ResponseAI, Prompt: prompt}
	return b
}

// Build finalizes the protocol under construction.
func (b *Builder) Build() *Protocol {
	return b.protocol
}
