package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestActionDecodingAppliesDefaults(t *testing.T) {
	var a Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"click","selector":"#go"}`), &a))

	assert.Equal(t, ActionClick, a.Type)
	assert.Equal(t, SelectorAuto, a.SelectorType)
	assert.Equal(t, DefaultTimeoutMS, a.Timeout)
	assert.False(t, a.Value.IsSet())
}

func TestActionDecodingKeepsUnknownKinds(t *testing.T) {
	var a Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"teleport","selector_type":"magic"}`), &a))

	assert.False(t, a.Type.IsValid())
	assert.False(t, a.SelectorType.IsValid())
}

func TestValueDecoding(t *testing.T) {
	tests := []struct {
		in      string
		set     bool
		numeric bool
		str     string
	}{
		{in: `null`},
		{in: `"hello"`, set: true, str: "hello"},
		{in: `""`, set: true, str: ""},
		{in: `500`, set: true, numeric: true, str: "500"},
		{in: `1.5`, set: true, numeric: true, str: "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))
			assert.Equal(t, tt.set, v.IsSet())
			assert.Equal(t, tt.numeric, v.IsNumeric())
			assert.Equal(t, tt.str, v.String())
		})
	}

	var v Value
	assert.Error(t, json.Unmarshal([]byte(`true`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
}

func TestValueKeepsItsShape(t *testing.T) {
	out, err := json.Marshal(struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
	}{A: IntValue(3), B: StringValue("3")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3,"b":"3","c":null}`, string(out))
}

func TestValueInt(t *testing.T) {
	n, err := StringValue(" 250 ").Int()
	require.NoError(t, err)
	assert.Equal(t, 250, n)

	n, err = StringValue("500.0").Int()
	require.NoError(t, err)
	assert.Equal(t, 500, n)

	_, err = StringValue("1.5").Int()
	assert.Error(t, err)
	_, err = StringValue("soon").Int()
	assert.Error(t, err)
	_, err = Value{}.Int()
	assert.Error(t, err)
}

func TestRunInputFromYAML(t *testing.T) {
	doc := `
browser_type: chromium
headless: false
stealth_mode: true
actions:
  - type: navigate
    value: https://example.com
  - type: wait
    value: 500
  - type: scroll
`
	var in RunInput
	require.NoError(t, yaml.Unmarshal([]byte(doc), &in))

	assert.Equal(t, EngineChromium, in.Engine)
	assert.False(t, in.IsHeadless())
	assert.True(t, in.Stealth)
	require.Len(t, in.Actions, 3)
	assert.Equal(t, "https://example.com", in.Actions[0].Value.String())
	assert.True(t, in.Actions[1].Value.IsNumeric())
	assert.False(t, in.Actions[2].Value.IsSet())
	assert.Equal(t, DefaultTimeoutMS, in.Actions[2].Timeout)
}

func TestRunInputFromJSON(t *testing.T) {
	var in RunInput
	require.NoError(t, json.Unmarshal([]byte(`{
		"browser_type": "firefox",
		"proxy": {"custom_proxy_url": "http://proxy:3128"},
		"actions": [{"type": "get_title"}]
	}`), &in))

	assert.Equal(t, EngineFirefox, in.EngineOrDefault())
	assert.True(t, in.IsHeadless())
	require.NotNil(t, in.Proxy)
	assert.Equal(t, "http://proxy:3128", in.Proxy.URL)
	assert.Len(t, in.Actions, 1)
}

func TestRecordOmitsAbsentFields(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := ActionResult{
		Success:         true,
		Action:          Action{Type: ActionGetTitle},
		Output:          "Example Domain",
		ExecutionTimeMS: 12.5,
		Timestamp:       ts,
	}

	out, err := json.Marshal(r.Record())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "get_title",
		"success": true,
		"execution_time_ms": 12.5,
		"output": "Example Domain",
		"timestamp": "2024-05-01T12:00:00Z"
	}`, string(out))
}

func TestRecordCarriesOptionalFields(t *testing.T) {
	r := ActionResult{
		Success:    false,
		Action:     Action{Type: ActionClick, Selector: "#go", Value: IntValue(2), Description: "press go"},
		Error:      "element not found: #go",
		ErrorKind:  KindElementNotFound,
		Screenshot: nil,
	}
	rec := r.Record()
	assert.Equal(t, "#go", rec.Selector)
	require.NotNil(t, rec.Value)
	assert.Equal(t, "2", rec.Value.String())
	assert.Equal(t, "press go", rec.Description)
	assert.Equal(t, KindElementNotFound, rec.ErrorKind)
	assert.False(t, rec.HasScreenshot)

	shot := ActionResult{Success: true, Action: Action{Type: ActionScreenshot}, Screenshot: []byte{1}}
	assert.True(t, shot.Record().HasScreenshot)
}

func TestRecordKeepsExplicitEmptyValue(t *testing.T) {
	var a Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"fill","selector":"#q","value":""}`), &a))
	require.True(t, a.Value.IsSet())

	out, err := json.Marshal(ActionResult{Success: true, Action: a}.Record())
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out, &rec))
	require.Contains(t, rec, "value")
	assert.Equal(t, "", rec["value"])
}

func TestStatsRecord(t *testing.T) {
	var s SessionStats
	s.Record(ActionResult{Success: true, ExecutionTimeMS: 10})
	s.Record(ActionResult{Success: false, ExecutionTimeMS: 5})
	s.Record(ActionResult{Success: true, ExecutionTimeMS: 1, Screenshot: []byte{1, 2}})
	s.Record(ActionResult{Success: false, Screenshot: []byte{1}})

	assert.Equal(t, 4, s.TotalActions)
	assert.Equal(t, 2, s.SuccessfulActions)
	assert.Equal(t, 2, s.FailedActions)
	assert.Equal(t, 1, s.ScreenshotsCaptured)
	assert.InDelta(t, 16.0, s.TotalExecutionTimeMS, 1e-9)
}

func TestErrorKinds(t *testing.T) {
	base := NewError(KindLaunchFailure, "browser %s missing", "chromium")
	wrapped := WrapError(KindOperationFailure, base, "outer")

	assert.Equal(t, KindLaunchFailure, KindOf(base))
	assert.Equal(t, KindOperationFailure, KindOf(wrapped))
	assert.Equal(t, "outer: browser chromium missing", wrapped.Error())
	assert.Equal(t, ErrorKind(""), KindOf(assert.AnError))
	assert.True(t, KindTemplateError.Fatal())
	assert.False(t, KindElementNotFound.Fatal())
}
