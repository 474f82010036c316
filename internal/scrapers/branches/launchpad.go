package branches

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// link hub pages without anchors ship their buttons as a json object passed to a
// client side initializer, these are the ways that object is introduced.
var launchpadMarkerRegex = regexp.MustCompile(
	`(?i)(?:launchpad\s*\.\s*init\s*\(|new\s+launchpad\s*\(|__launchpad(?:_data|_state)?__\s*=)`,
)

type launchpadButton struct {
	Type        string
	Active      bool
	Title       string
	Description string
	// Target is the button's own url or one rebuilt from its domain and keyword,
	// it may still be relative or lack a scheme.
	Target string
}

func (b launchpadButton) isActiveLink() bool {
	return b.Active && strings.EqualFold(b.Type, "link") && b.Target != ""
}

type launchpadPayload struct {
	Buttons []launchpadButton
}

// findLaunchpadJSON returns the object literal following the first launchpad marker
// in script.
func findLaunchpadJSON(script string) (string, bool) {
	loc := launchpadMarkerRegex.FindStringIndex(script)
	if loc == nil {
		return "", false
	}
	rest := script[loc[1]:]
	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return "", false
	}
	end, ok := matchBrace(rest[start:])
	if !ok {
		return "", false
	}
	return rest[start : start+end+1], true
}

// matchBrace returns the index of the brace closing the one at s[0], quoted strings
// are skipped.
func matchBrace(s string) (int, bool) {
	depth := 0
	var quote byte
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func parseLaunchpadPayload(raw string) (launchpadPayload, error) {
	var root any
	err := json5.Unmarshal([]byte(raw), &root)
	if err != nil {
		return launchpadPayload{}, fmt.Errorf("parse launchpad payload: %w", err)
	}

	buttons, ok := findKey(root, "buttons").([]any)
	if !ok {
		return launchpadPayload{}, fmt.Errorf("parse launchpad payload: no buttons array")
	}

	links := map[string]string{}
	indexLinks(root, links)

	payload := launchpadPayload{}
	for _, b := range buttons {
		obj, ok := b.(map[string]any)
		if !ok {
			continue
		}
		payload.Buttons = append(payload.Buttons, readButton(obj, links))
	}
	return payload, nil
}

func readButton(obj map[string]any, links map[string]string) launchpadButton {
	button := launchpadButton{
		Type:        stringField(obj, "type", "button_type", "kind"),
		Active:      activeField(obj, "is_active", "active", "enabled"),
		Title:       stringField(obj, "title", "text", "label"),
		Description: stringField(obj, "description", "subtitle"),
	}

	button.Target = stringField(obj, "url", "target", "href", "long_url")
	if button.Target != "" {
		return button
	}
	if target := domainKeywordUrl(obj); target != "" {
		button.Target = target
		return button
	}
	for _, key := range []string{"link", "bitlink"} {
		nested, ok := obj[key].(map[string]any)
		if !ok {
			continue
		}
		if target := domainKeywordUrl(nested); target != "" {
			button.Target = target
			return button
		}
	}
	linkId := stringField(obj, "link_id", "bitlink_id", "bitlink")
	if linkId != "" {
		button.Target = links[linkId]
	}
	return button
}

func domainKeywordUrl(obj map[string]any) string {
	domain := strings.Trim(stringField(obj, "domain"), "/ ")
	keyword := strings.Trim(stringField(obj, "keyword", "backhalf"), "/ ")
	if domain == "" || keyword == "" {
		return ""
	}
	return fmt.Sprintf("https://%s/%s", domain, keyword)
}

// indexLinks records every object in value that carries an id next to a domain and
// keyword pair.
func indexLinks(value any, out map[string]string) {
	switch v := value.(type) {
	case map[string]any:
		id := stringField(v, "id", "link_id", "bitlink_id")
		if target := domainKeywordUrl(v); id != "" && target != "" {
			if _, exists := out[id]; !exists {
				out[id] = target
			}
		}
		for _, k := range sortedKeys(v) {
			indexLinks(v[k], out)
		}
	case []any:
		for _, child := range v {
			indexLinks(child, out)
		}
	}
}

// findKey does a breadth first search for key in nested objects and arrays.
func findKey(value any, key string) any {
	queue := []any{value}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		switch v := current.(type) {
		case map[string]any:
			if found, ok := v[key]; ok {
				return found
			}
			for _, k := range sortedKeys(v) {
				queue = append(queue, v[k])
			}
		case []any:
			queue = append(queue, v...)
		}
	}
	return nil
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func stringField(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// activeField treats a missing flag as active.
func activeField(obj map[string]any, keys ...string) bool {
	for _, k := range keys {
		value, ok := obj[k]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v
		case float64:
			return v != 0
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "1", "yes", "active":
				return true
			default:
				return false
			}
		case nil:
			return false
		}
	}
	return true
}
