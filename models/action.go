package models

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTimeoutMS is used when an action carries no positive timeout.
const DefaultTimeoutMS = 10000

// ActionType identifies one of the supported browser commands.
type ActionType string

const (
	ActionNavigate          ActionType = "navigate"
	ActionClick             ActionType = "click"
	ActionTypeText          ActionType = "type"
	ActionFill              ActionType = "fill"
	ActionSelect            ActionType = "select"
	ActionCheck             ActionType = "check"
	ActionUncheck           ActionType = "uncheck"
	ActionScreenshot        ActionType = "screenshot"
	ActionExtractText       ActionType = "extract_text"
	ActionExtractAttributes ActionType = "extract_attributes"
	ActionWait              ActionType = "wait"
	ActionScroll            ActionType = "scroll"
	ActionHover             ActionType = "hover"
	ActionFocus             ActionType = "focus"
	ActionPressKey          ActionType = "press_key"
	ActionGetHTML           ActionType = "get_html"
	ActionEvaluate          ActionType = "evaluate"
	ActionWaitForElement    ActionType = "wait_for_element"
	ActionGetTitle          ActionType = "get_title"
	ActionGetURL            ActionType = "get_url"
	ActionGoBack            ActionType = "go_back"
	ActionGoForward         ActionType = "go_forward"
	ActionReload            ActionType = "reload"
)

// AllActionTypes lists every supported kind in table order.
var AllActionTypes = []ActionType{
	ActionNavigate,
	ActionClick,
	ActionTypeText,
	ActionFill,
	ActionSelect,
	ActionCheck,
	ActionUncheck,
	ActionScreenshot,
	ActionExtractText,
	ActionExtractAttributes,
	ActionWait,
	ActionScroll,
	ActionHover,
	ActionFocus,
	ActionPressKey,
	ActionGetHTML,
	ActionEvaluate,
	ActionWaitForElement,
	ActionGetTitle,
	ActionGetURL,
	ActionGoBack,
	ActionGoForward,
	ActionReload,
}

func (t ActionType) IsValid() bool {
	for _, known := range AllActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SelectorType selects how a selector string is interpreted.
type SelectorType string

const (
	SelectorCSS   SelectorType = "css"
	SelectorXPath SelectorType = "xpath"
	SelectorText  SelectorType = "text"
	SelectorRole  SelectorType = "role"
	SelectorLabel SelectorType = "label" // explicit only, never tried by auto
	SelectorAuto  SelectorType = "auto"
)

func (s SelectorType) IsValid() bool {
	switch s {
	case SelectorCSS, SelectorXPath, SelectorText, SelectorRole, SelectorLabel, SelectorAuto:
		return true
	}
	return false
}

// Action is one command of a run. It is decoded once at the input boundary
// and passed by value afterwards.
type Action struct {
	Type         ActionType     `json:"type" yaml:"type"`
	Selector     string         `json:"selector,omitempty" yaml:"selector,omitempty"`
	Value        Value          `json:"value" yaml:"value,omitempty"`
	SelectorType SelectorType   `json:"selector_type,omitempty" yaml:"selector_type,omitempty"` // css, xpath, text, role, label, auto
	Timeout      int            `json:"timeout,omitempty" yaml:"timeout,omitempty"`             // milliseconds
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Normalized returns a copy with defaults filled in.
func (a Action) Normalized() Action {
	if a.SelectorType == "" {
		a.SelectorType = SelectorAuto
	}
	if a.Timeout <= 0 {
		a.Timeout = DefaultTimeoutMS
	}
	return a
}

// TimeoutDuration is the per-phase deadline of the action.
func (a Action) TimeoutDuration() time.Duration {
	if a.Timeout <= 0 {
		return DefaultTimeoutMS * time.Millisecond
	}
	return time.Duration(a.Timeout) * time.Millisecond
}

// EffectiveSelectorType treats an empty selector type as auto.
func (a Action) EffectiveSelectorType() SelectorType {
	if a.SelectorType == "" {
		return SelectorAuto
	}
	return a.SelectorType
}

// MetadataString returns a string entry of the metadata map.
func (a Action) MetadataString(key string) string {
	if a.Metadata == nil {
		return ""
	}
	s, _ := a.Metadata[key].(string)
	return s
}

type actionAlias Action

func (a *Action) UnmarshalJSON(data []byte) error {
	var alias actionAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*a = Action(alias).Normalized()
	return nil
}

func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	var alias actionAlias
	if err := node.Decode(&alias); err != nil {
		return err
	}
	*a = Action(alias).Normalized()
	return nil
}
