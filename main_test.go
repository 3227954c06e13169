package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/browserwing/actionrunner/models"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagCmd(t *testing.T, f *runFlags, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().BoolVar(&f.headless, "headless", true, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRunInputByExtension(t *testing.T) {
	yamlPath := writeFile(t, "run.yaml", `
stealth_mode: true
actions:
  - type: navigate
    value: https://example.com
  - type: type
    selector: "#q"
    value: 42
`)
	in, err := loadRunInput(yamlPath)
	require.NoError(t, err)
	assert.True(t, in.Stealth)
	require.Len(t, in.Actions, 2)
	assert.Equal(t, models.ActionNavigate, in.Actions[0].Type)
	assert.Equal(t, models.DefaultTimeoutMS, in.Actions[1].Timeout)

	jsonPath := writeFile(t, "run.json", `{"template": "google_search", "template_params": {"search_query": "rod"}}`)
	in, err = loadRunInput(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "google_search", in.Template)
	assert.Equal(t, "rod", in.TemplateParams["search_query"])

	_, err = loadRunInput(writeFile(t, "bad.json", `{"actions": "nope"}`))
	require.Error(t, err)
	assert.Equal(t, models.KindInvalidInput, models.KindOf(err))

	_, err = loadRunInput(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBuildRunInputAppliesFlags(t *testing.T) {
	path := writeFile(t, "run.json", `{"template_params": {"search_query": "old", "max_results": 3}}`)
	f := &runFlags{
		template: "google_search",
		params:   []string{"search_query=golang rod", "extra=a=b"},
		engine:   "Chromium",
		stealth:  true,
		proxy:    "proxy.local:3128",
	}
	cmd := flagCmd(t, f, "--headless=false")

	in, err := buildRunInput(cmd, f, []string{path})
	require.NoError(t, err)
	assert.Equal(t, "google_search", in.Template)
	assert.Equal(t, "golang rod", in.TemplateParams["search_query"])
	assert.Equal(t, "a=b", in.TemplateParams["extra"])
	assert.EqualValues(t, 3, in.TemplateParams["max_results"])
	assert.Equal(t, models.EngineChromium, in.Engine)
	require.NotNil(t, in.Headless)
	assert.False(t, in.IsHeadless())
	assert.True(t, in.Stealth)
	require.NotNil(t, in.Proxy)
	assert.Equal(t, "proxy.local:3128", in.Proxy.URL)
}

func TestBuildRunInputDefaults(t *testing.T) {
	f := &runFlags{}
	in, err := buildRunInput(flagCmd(t, f), f, nil)
	require.NoError(t, err)
	assert.Nil(t, in.Headless, "headless stays unset unless the flag is given")
	assert.True(t, in.IsHeadless())
	assert.Nil(t, in.Proxy)
	assert.Empty(t, in.Actions)
}

func TestBuildRunInputRejectsBadFlags(t *testing.T) {
	f := &runFlags{engine: "netscape"}
	_, err := buildRunInput(flagCmd(t, f), f, nil)
	assert.Error(t, err)

	f = &runFlags{params: []string{"novalue"}}
	_, err = buildRunInput(flagCmd(t, f), f, nil)
	assert.Error(t, err)

	f = &runFlags{params: []string{"=x"}}
	_, err = buildRunInput(flagCmd(t, f), f, nil)
	assert.Error(t, err)
}

func TestTemplatesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"templates"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "google_search")
	assert.Contains(t, out.String(), "search_query*")
	assert.Contains(t, out.String(), "max_results=10")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Version: "+Version)
}

func TestRunRejectsUnknownExport(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--export", "pdf"})
	assert.Error(t, cmd.Execute())
}

func TestRunXLSXExportNeedsOutputFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--export", "xlsx"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
}
