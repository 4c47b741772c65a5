// Package provider defines the capability-provider contract: a stable
// name, an advertised capability set, a message entry point, and an
// optional in-process function table for executor fast paths.
package provider

import (
	"context"

	"github.com/ostepan8/agentbus/message"
)

// Function is an in-process, directly callable implementation of a
// capability, bypassing the broker queue for deterministic one-party
// calls.
type Function func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)

// Provider is the contract every capability provider implements.
type Provider interface {
	Name() string
	Capabilities() []string
	ReceiveMessage(ctx context.Context, msg *message.Message)
}

// FunctionTableProvider is implemented by providers that additionally
// expose an in-process function table the executor may call directly.
type FunctionTableProvider interface {
	Provider
	FunctionTable() map[string]Function
}

// Sender is the broker-provided back-reference a provider uses to reply.
// The broker implements this; providers hold it, never the broker's
// concrete type, breaking the ownership cycle: providers are indexed by
// name from the broker side, and the Sender reference is held by the
// provider as a weak, non-owning dependency.
type Sender interface {
	SendCapabilityResponse(ctx context.Context, to string, content map[string]interface{}, requestID, replyTo string)
	SendError(ctx context.Context, to string, errText string, requestID string)
}
