package route

import (
	"fmt"
	"regexp"
	"strings"
)

// Placeholder is one {name} or {name:regex} token of a path template.
type Placeholder struct {
	Name    string
	Pattern string
	// Optional is set when an optional-segment bracket precedes the token.
	Optional bool

	re *regexp.Regexp
}

// Match reports whether value satisfies the inline constraint, if any.
func (p Placeholder) Match(value string) bool {
	return p.re == nil || p.re.MatchString(value)
}

// Template is a parsed path template such as
// "/course/{id:[0-9]+}[/section/{section}]".
type Template struct {
	raw          string
	placeholders []Placeholder
}

// ParseTemplate parses a path template. Braces nest, so inline regexes may
// contain brackets and quantifiers. Brackets outside placeholders delimit
// optional trailing segments.
func ParseTemplate(raw string) (*Template, error) {
	t := &Template{raw: raw}
	seen := map[string]bool{}

	braceDepth, optDepth := 0, 0
	optionalSeen := false
	start := 0

	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			if braceDepth == 0 {
				start = i + 1
			}
			braceDepth++
		case '}':
			if braceDepth == 0 {
				return nil, fmt.Errorf("template %q: unexpected '}' at %d", raw, i)
			}
			braceDepth--
			if braceDepth > 0 {
				continue
			}
			ph, err := newPlaceholder(raw[start:i], optionalSeen)
			if err != nil {
				return nil, fmt.Errorf("template %q: %w", raw, err)
			}
			if seen[ph.Name] {
				return nil, fmt.Errorf("template %q: duplicate placeholder %q", raw, ph.Name)
			}
			seen[ph.Name] = true
			t.placeholders = append(t.placeholders, ph)
		case '[':
			if braceDepth == 0 {
				optDepth++
				optionalSeen = true
			}
		case ']':
			if braceDepth == 0 {
				optDepth--
				if optDepth < 0 {
					return nil, fmt.Errorf("template %q: unexpected ']' at %d", raw, i)
				}
			}
		}
	}

	if braceDepth != 0 {
		return nil, fmt.Errorf("template %q: unclosed '{'", raw)
	}
	if optDepth != 0 {
		return nil, fmt.Errorf("template %q: unclosed '['", raw)
	}
	return t, nil
}

var placeholderName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func newPlaceholder(body string, optional bool) (Placeholder, error) {
	name, pattern, _ := strings.Cut(body, ":")
	if !placeholderName.MatchString(name) {
		return Placeholder{}, fmt.Errorf("invalid placeholder name %q", name)
	}
	ph := Placeholder{Name: name, Pattern: pattern, Optional: optional}
	if pattern != "" {
		re, err := compileAnchored(pattern)
		if err != nil {
			return Placeholder{}, fmt.Errorf("placeholder %q: %w", name, err)
		}
		ph.re = re
	}
	return ph, nil
}

// String returns the raw template.
func (t *Template) String() string { return t.raw }

// Placeholders returns the placeholders in template order.
func (t *Template) Placeholders() []Placeholder {
	return append([]Placeholder(nil), t.placeholders...)
}

// Placeholder looks up a placeholder by name.
func (t *Template) Placeholder(name string) (Placeholder, bool) {
	for _, ph := range t.placeholders {
		if ph.Name == name {
			return ph, true
		}
	}
	return Placeholder{}, false
}

// HasOptional reports whether any placeholder is optional.
func (t *Template) HasOptional() bool {
	for _, ph := range t.placeholders {
		if ph.Optional {
			return true
		}
	}
	return false
}

// Expand returns the concrete paths the template stands for, longest first:
// the full path with brackets and inline constraints removed, followed (when
// a placeholder is optional) by the prefix left after each truncation at the
// last remaining '['.
func (t *Template) Expand() []string {
	paths := []string{Clean(t.raw)}
	if !t.HasOptional() {
		return paths
	}

	cur := t.raw
	for {
		idx := lastBracket(cur)
		if idx < 0 {
			break
		}
		cur = cur[:idx]
		p := Clean(cur)
		if p != paths[len(paths)-1] {
			paths = append(paths, p)
		}
	}
	return paths
}

// lastBracket returns the index of the last '[' outside placeholders.
func lastBracket(s string) int {
	last, depth := -1, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '[':
			if depth == 0 {
				last = i
			}
		}
	}
	return last
}

// Clean removes optional-segment brackets and inline constraints:
// "/a/{id:[0-9]+}[/b]" becomes "/a/{id}/b". An empty result is "/".
func Clean(s string) string {
	var b strings.Builder
	depth := 0
	skipping := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{':
			if depth == 0 {
				b.WriteByte(c)
				skipping = false
			}
			depth++
			continue
		case c == '}':
			depth--
			if depth == 0 {
				b.WriteByte(c)
			}
			continue
		case depth > 0:
			if c == ':' && depth == 1 {
				skipping = true
			}
			if !skipping {
				b.WriteByte(c)
			}
			continue
		case c == '[' || c == ']':
			continue
		}
		b.WriteByte(c)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// EchoPath converts an emitted path to echo's router syntax ("{id}" to
// ":id").
func EchoPath(p string) string {
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '{':
			b.WriteByte(':')
		case '}':
		default:
			b.WriteByte(p[i])
		}
	}
	return b.String()
}

// Contains reports whether the emitted path carries the {name} placeholder.
func Contains(path, name string) bool {
	return strings.Contains(path, "{"+name+"}")
}
