package models

import (
	"time"
)

// ActionResult is the outcome of attempting one action exactly once.
type ActionResult struct {
	Success         bool         `json:"success"`
	Action          Action       `json:"action"`
	Output          any          `json:"output"`
	Error           string       `json:"error,omitempty"`      // non-empty iff !Success
	ErrorKind       ErrorKind    `json:"error_kind,omitempty"` // set iff !Success
	ExecutionTimeMS float64      `json:"execution_time_ms"`
	Screenshot      []byte       `json:"-"`                  // screenshot actions only
	Strategy        SelectorType `json:"strategy,omitempty"` // locator strategy that resolved the selector
	Attempts        int          `json:"attempts,omitempty"` // locator strategies tried
	Timestamp       time.Time    `json:"timestamp"`
}

// HasScreenshot reports whether the result carries an image payload.
func (r ActionResult) HasScreenshot() bool {
	return len(r.Screenshot) > 0
}

// ActionRecord is the flattened per-action output record.
type ActionRecord struct {
	Type            ActionType `json:"type"`
	Success         bool       `json:"success"`
	ExecutionTimeMS float64    `json:"execution_time_ms"`
	Output          any        `json:"output"`
	Timestamp       time.Time  `json:"timestamp"`
	Selector        string     `json:"selector,omitempty"`
	Value           *Value     `json:"value,omitempty"`
	Description     string     `json:"description,omitempty"`
	Error           string     `json:"error,omitempty"`
	ErrorKind       ErrorKind  `json:"error_kind,omitempty"`
	HasScreenshot   bool       `json:"has_screenshot,omitempty"`
}

// Record flattens the result. Optional fields stay empty unless the action
// or the result carried them.
func (r ActionResult) Record() ActionRecord {
	rec := ActionRecord{
		Type:            r.Action.Type,
		Success:         r.Success,
		ExecutionTimeMS: r.ExecutionTimeMS,
		Output:          r.Output,
		Timestamp:       r.Timestamp,
		Selector:        r.Action.Selector,
		Description:     r.Action.Description,
		Error:           r.Error,
		ErrorKind:       r.ErrorKind,
		HasScreenshot:   r.HasScreenshot(),
	}
	if r.Action.Value.IsSet() {
		v := r.Action.Value
		rec.Value = &v
	}
	return rec
}
