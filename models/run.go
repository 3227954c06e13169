package models

import (
	"time"
)

// Engine is the browser engine a session is launched with.
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineFirefox  Engine = "firefox"
	EngineWebKit   Engine = "webkit"
)

func (e Engine) IsValid() bool {
	switch e {
	case EngineChromium, EngineFirefox, EngineWebKit:
		return true
	}
	return false
}

// ProxySettings either names a proxy URL directly or asks for the platform
// proxy configured on the server.
type ProxySettings struct {
	URL              string   `json:"custom_proxy_url,omitempty" yaml:"custom_proxy_url,omitempty"`
	Username         string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password         string   `json:"password,omitempty" yaml:"password,omitempty"`
	UsePlatformProxy bool     `json:"use_platform_proxy,omitempty" yaml:"use_platform_proxy,omitempty"`
	Groups           []string `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// LaunchOptions are only read by session provisioning.
type LaunchOptions struct {
	Engine   Engine         `json:"browser_type,omitempty" yaml:"browser_type,omitempty"`
	Headless *bool          `json:"headless,omitempty" yaml:"headless,omitempty"` // nil means headless
	Stealth  bool           `json:"stealth_mode,omitempty" yaml:"stealth_mode,omitempty"`
	Proxy    *ProxySettings `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

func (o LaunchOptions) EngineOrDefault() Engine {
	if o.Engine == "" {
		return EngineChromium
	}
	return o.Engine
}

func (o LaunchOptions) IsHeadless() bool {
	return o.Headless == nil || *o.Headless
}

// RunInput is everything needed to start one run.
type RunInput struct {
	Actions        []Action       `json:"actions,omitempty" yaml:"actions,omitempty"`
	Template       string         `json:"template,omitempty" yaml:"template,omitempty"`
	TemplateParams map[string]any `json:"template_params,omitempty" yaml:"template_params,omitempty"`
	LaunchOptions  `yaml:",inline"`
}

// SessionStats aggregates the results of one run.
type SessionStats struct {
	TotalActions         int     `json:"total_actions"`
	SuccessfulActions    int     `json:"successful_actions"`
	FailedActions        int     `json:"failed_actions"`
	TotalExecutionTimeMS float64 `json:"total_execution_time_ms"`
	ScreenshotsCaptured  int     `json:"screenshots_captured"`
}

// Record folds one result into the stats.
func (s *SessionStats) Record(r ActionResult) {
	s.TotalActions++
	if r.Success {
		s.SuccessfulActions++
		if r.HasScreenshot() {
			s.ScreenshotsCaptured++
		}
	} else {
		s.FailedActions++
	}
	s.TotalExecutionTimeMS += r.ExecutionTimeMS
}

// RunSummary is produced once per run, fatal or not.
type RunSummary struct {
	RunID     string         `json:"run_id,omitempty"`
	Success   bool           `json:"success"`
	Stats     SessionStats   `json:"stats"`
	Actions   []ActionRecord `json:"actions"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
	ErrorKind ErrorKind      `json:"error_kind,omitempty"`
	// files written by screenshot sinks for this run
	Screenshots []string `json:"screenshots,omitempty"`

	Results []ActionResult `json:"-"`
}

// RunRecord is a stored run.
type RunRecord struct {
	ID          string      `json:"id"`
	Template    string      `json:"template,omitempty"`
	TraceID     string      `json:"trace_id,omitempty"`
	ActionCount int         `json:"action_count"`
	Summary     *RunSummary `json:"summary"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
	DurationMS  int64       `json:"duration_ms"`
	Screenshots []string    `json:"screenshots,omitempty"`
}
