// Package message defines the envelope every component in this module
// passes through the broker.
package message

import "github.com/google/uuid"

// Type classifies a Message for priority routing and dispatch semantics.
type Type string

const (
	TypeCapabilityRequest  Type = "capability_request"
	TypeCapabilityResponse Type = "capability_response"
	TypeError              Type = "error"
)

// Priority is the broker's drain-order classification.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// ClassifyPriority maps a message type to its default priority per the
// broker's classification table. Senders may override it explicitly.
func ClassifyPriority(t Type) Priority {
	switch t {
	case TypeCapabilityResponse, TypeError:
		return PriorityHigh
	case TypeCapabilityRequest:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// Message is an immutable envelope. Content is a reference-shared map: the
// broker does not deep-copy it during fan-out, so callers must treat it as
// read-only once a Message is constructed.
type Message struct {
	ID          string
	FromAgent   string
	ToAgent     string // empty means broadcast
	MessageType Type
	Content     map[string]interface{}
	RequestID   string
	ReplyTo     string
}

// New constructs a Message with a freshly generated ID.
func New(from, to string, msgType Type, content map[string]interface{}) *Message {
	return &Message{
		ID:          uuid.NewString(),
		FromAgent:   from,
		ToAgent:     to,
		MessageType: msgType,
		Content:     content,
	}
}

// WithCorrelation returns a copy of m carrying requestID/replyTo. Used by
// the broker when it needs to stamp correlation metadata onto an
// otherwise-complete message without mutating the caller's original.
func (m *Message) WithCorrelation(requestID, replyTo string) *Message {
	clone := *m
	clone.RequestID = requestID
	clone.ReplyTo = replyTo
	return &clone
}

// IsBroadcast reports whether the message has no specific recipient.
func (m *Message) IsBroadcast() bool {
	return m.ToAgent == ""
}

// Error returns the error string carried in an error message's content, if
// any. Content carrying an error field is surfaced as a step failure by
// callers, never as a thrown exception.
func (m *Message) Error() (string, bool) {
	if m.Content == nil {
		return "", false
	}
	errVal, ok := m.Content["error"]
	if !ok {
		return "", false
	}
	s, ok := errVal.(string)
	return s, ok
}
