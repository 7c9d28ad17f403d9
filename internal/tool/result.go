package tool

import (
	"encoding/json"
	"errors"
)

// Result is the outcome of one tool call as shown back to the model.
type Result struct {
	ToolCallID string
	Name       string
	Success    bool
	Data       json.RawMessage
	Message    string
}

type resultWire struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Text serialises the result into the content of a tool message.
func (r Result) Text() string {
	raw, err := json.Marshal(resultWire{Success: r.Success, Data: r.Data, Message: r.Message})
	if err != nil {
		return `{"success":false,"message":"result could not be encoded"}`
	}
	return string(raw)
}

type envelope struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Reply builds the payload a tool returns on success.
func Reply(data interface{}, message string) (json.RawMessage, error) {
	env := envelope{Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// Failure is an expected business outcome ("Restoran tidak ditemukan") whose
// message is safe to show the model verbatim.
type Failure struct {
	Message  string
	Category error
}

func (f *Failure) Error() string { return f.Message }
func (f *Failure) Unwrap() error { return f.Category }

// Fail returns a Failure tagged with category for errors.Is checks.
func Fail(message string, category error) error {
	return &Failure{Message: message, Category: category}
}

func asFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
