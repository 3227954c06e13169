package executor

import (
	"context"
	"testing"
	"time"

	"github.com/browserwing/actionrunner/models"
	"github.com/browserwing/actionrunner/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shortTimeout = 30 * time.Millisecond

func TestLocatorAutoCSSMatchTriesOneStrategy(t *testing.T) {
	page := newFakePage()
	el := visibleElement()
	page.css["#submit"] = el

	res := NewLocator(logger.Nop()).Resolve(context.Background(), page, "#submit", models.SelectorAuto, shortTimeout)

	require.True(t, res.Found())
	assert.Same(t, el, res.Element)
	assert.Equal(t, models.SelectorCSS, res.Strategy)
	assert.Len(t, res.Attempts, 1)
	assert.Equal(t, []string{"css"}, page.lookups)
}

func TestLocatorAutoFallsBackInPriorityOrder(t *testing.T) {
	page := newFakePage()
	el := visibleElement()
	page.text["Sign in"] = el

	res := NewLocator(logger.Nop()).Resolve(context.Background(), page, "Sign in", models.SelectorAuto, shortTimeout)

	require.True(t, res.Found())
	assert.Equal(t, models.SelectorText, res.Strategy)
	assert.Equal(t, []string{"css", "xpath", "text"}, page.lookups)
	require.Len(t, res.Attempts, 3)
	assert.Error(t, res.Attempts[0].Err)
	assert.Error(t, res.Attempts[1].Err)
	assert.NoError(t, res.Attempts[2].Err)
}

func TestLocatorFirstVisibleMatchWins(t *testing.T) {
	page := newFakePage()
	hidden := visibleElement()
	hidden.hidden = true
	page.css["button"] = hidden
	byXPath := visibleElement()
	page.xpath["button"] = byXPath
	page.text["button"] = visibleElement()

	res := NewLocator(logger.Nop()).Resolve(context.Background(), page, "button", models.SelectorAuto, shortTimeout)

	require.True(t, res.Found())
	assert.Same(t, byXPath, res.Element)
	assert.Equal(t, []string{"css", "xpath"}, page.lookups)
}

func TestLocatorNotFoundIsAValue(t *testing.T) {
	page := newFakePage()

	res := NewLocator(logger.Nop()).Resolve(context.Background(), page, "missing-thing", models.SelectorAuto, shortTimeout)

	assert.False(t, res.Found())
	assert.Nil(t, res.Element)
	assert.Len(t, res.Attempts, 4)
	assert.Equal(t, []string{"css", "xpath", "text", "role"}, page.lookups)
}

func TestLocatorUnparsableRoleSelectorStillCountsAsAttempt(t *testing.T) {
	page := newFakePage()

	res := NewLocator(logger.Nop()).Resolve(context.Background(), page, "#missing", models.SelectorAuto, shortTimeout)

	assert.False(t, res.Found())
	require.Len(t, res.Attempts, 4)
	role := res.Attempts[3]
	assert.Equal(t, models.SelectorRole, role.Strategy)
	require.Error(t, role.Err)
	assert.Contains(t, role.Err.Error(), "invalid role selector")
	// the page is never asked for a role match it cannot express
	assert.Equal(t, []string{"css", "xpath", "text"}, page.lookups)
}

func TestLocatorExplicitTypeTriesOnlyThatStrategy(t *testing.T) {
	page := newFakePage()
	page.css["//a"] = visibleElement()

	res := NewLocator(logger.Nop()).Resolve(context.Background(), page, "//a", models.SelectorXPath, shortTimeout)

	assert.False(t, res.Found())
	assert.Len(t, res.Attempts, 1)
	assert.Equal(t, []string{"xpath"}, page.lookups)
}

func TestLocatorRoleAndLabel(t *testing.T) {
	page := newFakePage()
	button := visibleElement()
	page.role["button|Submit"] = button
	email := visibleElement()
	page.label["Email"] = email

	loc := NewLocator(logger.Nop())
	res := loc.Resolve(context.Background(), page, `button[name="Submit"]`, models.SelectorRole, shortTimeout)
	require.True(t, res.Found())
	assert.Same(t, button, res.Element)

	res = loc.Resolve(context.Background(), page, "Email", models.SelectorLabel, shortTimeout)
	require.True(t, res.Found())
	assert.Same(t, email, res.Element)
}

func TestLocatorLabelIsNotPartOfAuto(t *testing.T) {
	assert.NotContains(t, Strategies(models.SelectorAuto), models.SelectorLabel)
	assert.Equal(t, []models.SelectorType{models.SelectorLabel}, Strategies(models.SelectorLabel))
	assert.Equal(t, Strategies(models.SelectorAuto), Strategies(""))
}

func TestLocatorEachAttemptGetsItsOwnTimeout(t *testing.T) {
	page := newFakePage()
	page.role["link|"] = visibleElement()

	started := time.Now()
	res := NewLocator(logger.Nop()).Resolve(context.Background(), page, "link", models.SelectorAuto, 40*time.Millisecond)
	elapsed := time.Since(started)

	require.True(t, res.Found())
	assert.Equal(t, models.SelectorRole, res.Strategy)
	// css, xpath and text each wait out their own timeout
	assert.GreaterOrEqual(t, elapsed, 120*time.Millisecond)
}

func TestParseRoleSelector(t *testing.T) {
	tests := []struct {
		in       string
		role     string
		name     string
		hasError bool
	}{
		{in: "button", role: "button"},
		{in: `button[name="Submit"]`, role: "button", name: "Submit"},
		{in: `link[name='Read more']`, role: "link", name: "Read more"},
		{in: `textbox[name=Email]`, role: "textbox", name: "Email"},
		{in: `Heading [ name = "Top" i ]`, role: "heading", name: "Top"},
		{in: "#id", hasError: true},
		{in: "", hasError: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			role, name, err := ParseRoleSelector(tt.in)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.role, role)
			assert.Equal(t, tt.name, name)
		})
	}
}
