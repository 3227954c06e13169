package browser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-rod/rod/lib/input"
)

var modifierKeys = map[string]input.Key{
	"control": input.ControlLeft,
	"ctrl":    input.ControlLeft,
	"shift":   input.ShiftLeft,
	"alt":     input.AltLeft,
	"option":  input.AltLeft,
	"meta":    input.MetaLeft,
	"cmd":     input.MetaLeft,
	"command": input.MetaLeft,
}

var namedKeys = map[string]input.Key{
	"enter":      input.Enter,
	"return":     input.Enter,
	"tab":        input.Tab,
	"escape":     input.Escape,
	"esc":        input.Escape,
	"backspace":  input.Backspace,
	"delete":     input.Delete,
	"arrowup":    input.ArrowUp,
	"up":         input.ArrowUp,
	"arrowdown":  input.ArrowDown,
	"down":       input.ArrowDown,
	"arrowleft":  input.ArrowLeft,
	"left":       input.ArrowLeft,
	"arrowright": input.ArrowRight,
	"right":      input.ArrowRight,
	"home":       input.Home,
	"end":        input.End,
	"pageup":     input.PageUp,
	"pagedown":   input.PageDown,
	"space":      input.Space,
}

// chord is a key press with the modifiers held around it.
type chord struct {
	modifiers []input.Key
	key       input.Key
}

// parseChord understands names such as "Enter", "a" and "Control+Shift+K".
func parseChord(s string) (chord, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return chord{}, fmt.Errorf("empty key")
	}

	// "+" on its own and "Shift++" name the plus key
	parts := strings.Split(s, "+")
	switch {
	case s == "+":
		parts = []string{"+"}
	case strings.HasSuffix(s, "++"):
		parts = append(strings.Split(strings.TrimSuffix(s, "++"), "+"), "+")
	}

	var c chord
	for i, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		last := i == len(parts)-1
		if !last {
			mod, ok := modifierKeys[name]
			if !ok {
				return chord{}, fmt.Errorf("unknown modifier %q in %q", part, s)
			}
			c.modifiers = append(c.modifiers, mod)
			continue
		}
		key, err := parseKey(strings.TrimSpace(part))
		if err != nil {
			return chord{}, err
		}
		c.key = key
	}
	return c, nil
}

func parseKey(name string) (input.Key, error) {
	if key, ok := namedKeys[strings.ToLower(name)]; ok {
		return key, nil
	}
	if key, ok := modifierKeys[strings.ToLower(name)]; ok {
		return key, nil
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return input.Key(r), nil
	}
	return 0, fmt.Errorf("unknown key: %s", name)
}
