// Package ai turns a free-form to-do list into a structured day plan using a
// hosted language model.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
)

const (
	MsgParseFailed   = "Failed to parse AI response."
	MsgInternalError = "Internal server error during AI generation."
	MsgQuotaExceeded = "OpenAI Quota Exceeded. Please check your billing at platform.openai.com."
)

// ErrParse marks a reply that was not the expected JSON document.
var ErrParse = errors.New("ai: unparseable response")

// Planner produces a day plan. Implementations never panic and report every
// failure as an *Error whose message is safe to show to the user.
type Planner interface {
	GenerateDailyPlan(ctx context.Context, todoList string) (*Plan, error)
}

type Plan struct {
	Message string        `json:"message"`
	Tasks   []PlannedTask `json:"tasks"`
}

// PlannedTask is a suggestion only; nothing is stored until the user accepts it.
type PlannedTask struct {
	ID          FlexibleID `json:"id,omitempty"`
	Title       string     `json:"title"`
	StartTime   string     `json:"start_time,omitempty"`
	EndTime     string     `json:"end_time,omitempty"`
	Icon        string     `json:"icon,omitempty"`
	Color       string     `json:"color,omitempty"`
	Description string     `json:"description,omitempty"`
}

// FlexibleID accepts ids the model emits either as strings or as numbers.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

// Error is the user-facing failure of a planner call.
type Error struct {
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func missingKey(envVar string) *Error {
	return &Error{Message: "API Key is missing. Please configure " + envVar + " in .env"}
}

func unavailable(status int, err error) *Error {
	return &Error{Message: "AI Service unavailable: " + strconv.Itoa(status), Status: status, Err: err}
}

func internal(err error) *Error {
	return &Error{Message: MsgInternalError, Err: err}
}

func parseFailed(err error) *Error {
	return &Error{Message: MsgParseFailed, Err: errors.Join(ErrParse, err)}
}

// decodePlan parses a model reply, tolerating a surrounding ```json fence.
func decodePlan(content string) (*Plan, error) {
	var plan Plan
	if err := json.Unmarshal([]byte(stripFences(content)), &plan); err != nil {
		return nil, parseFailed(err)
	}
	if plan.Tasks == nil {
		plan.Tasks = []PlannedTask{}
	}
	return &plan, nil
}
