package core

import (
	"time"

	"github.com/google/uuid"
)

// EventActions encodes orchestration signals attached to an Event. Fields
// are optional pointers / maps so absence can be distinguished from zero
// values; the runner interprets them after persistence.
type EventActions struct {
	StateDelta map[string]any `json:"state_delta,omitempty"`
	Handoff    *string        `json:"handoff,omitempty"` // target persona id
}

// Event is the primary unit of communication between persona agents, the
// runner and external clients. After emission it should be treated as
// immutable.
type Event struct {
	ID           string       `json:"id"`
	RunID        string       `json:"run_id"`
	Author       string       `json:"author"` // persona id, "user" or "system"
	Actions      EventActions `json:"actions"`
	Timestamp    time.Time    `json:"timestamp"`
	Content      *Content     `json:"content,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
}

// NewEvent creates a bare event authored by author bound to a run.
func NewEvent(runID, author string) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Author:    author,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageEvent creates an assistant message event with a single text part.
func NewMessageEvent(runID, author, message string) Event {
	e := NewEvent(runID, author)
	e.Content = &Content{Role: "assistant", Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewUserMessageEvent creates a user-authored text message event.
func NewUserMessageEvent(runID, message string) Event {
	e := NewEvent(runID, "user")
	e.Content = &Content{Role: "user", Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewFunctionCallEvent represents an agent requesting execution of a named tool.
func NewFunctionCallEvent(runID, author string, call FunctionCall) Event {
	e := NewEvent(runID, author)
	e.Content = &Content{Role: "assistant", Parts: []Part{FunctionCallPart{FunctionCall: call}}}
	return e
}

// NewFunctionResponseEvent records the completion result (or error) of a
// tool invocation. If err is non-nil its message is copied into the
// response's Error field.
func NewFunctionResponseEvent(runID, author, id, name string, result interface{}, err error) Event {
	e := NewEvent(runID, author)
	fr := FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	e.Content = &Content{Role: "tool", Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}}
	return e
}

// NewID generates a new unique identifier for events and runs.
func NewID() string { return uuid.NewString() }

// GetFunctionCalls returns any FunctionCall parts contained within the event
// content preserving their original order.
func (e Event) GetFunctionCalls() []FunctionCall {
	if e.Content == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range e.Content.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// IsFinalResponse reports whether the event closes an assistant turn (no
// pending tool activity).
func (e Event) IsFinalResponse() bool {
	if e.Content == nil {
		return false
	}
	return e.Content.Role == "assistant" && len(e.GetFunctionCalls()) == 0
}
