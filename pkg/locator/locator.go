// Package locator implements the neutral locator grammar (spec.md §6.1).
//
// A locator string identifies a DOM element without depending on any concrete
// browser engine's selector dialect. Stored SelectorCorrections and live step
// targets both speak this grammar, so parsing must be exact and deterministic —
// cache matches are byte-equal on the raw string, never on the parsed form.
package locator

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies which locator grammar variant a Locator is.
type Kind string

const (
	KindText      Kind = "text"
	KindTextRegex Kind = "text_regex"
	KindRole      Kind = "role"
	KindAttribute Kind = "attribute"
	KindCSS       Kind = "css"
	KindXPath     Kind = "xpath"
)

// Locator is the parsed form of a locator string.
type Locator struct {
	Kind Kind
	Raw  string // original string, verbatim (what gets persisted)

	// KindText
	TextLiteral string

	// KindTextRegex
	RegexPattern string
	RegexFlags   string

	// KindRole
	Role       string
	AccessName string // accessible name from name=<literal>; empty if absent

	// KindAttribute
	AttrName  string
	AttrValue string

	// KindCSS / KindXPath
	Expr string

	// Attribute is set when the locator was parsed from an
	// "<selector>::<attr>" form used only by attributeEquals assertions.
	// Attribute is the attr name; the rest of the Locator describes <selector>.
	Attribute string
}

var (
	roleRegex = regexp.MustCompile(`^role=([^\[]+)(?:\[name=(.+)\])?$`)
	attrRegex = regexp.MustCompile(`^\[([^=\]]+)=([^\]]*)\]$`)
	textRegex = regexp.MustCompile(`^text=/(.*)/([a-zA-Z]*)$`)
)

// Parse validates and parses a locator string. Unknown or malformed locators
// are rejected at ingest — callers must not silently coerce them to a
// best-effort CSS selector.
func Parse(s string) (*Locator, error) {
	target, attr, hasAttrSuffix := splitAttributeSuffix(s)
	if hasAttrSuffix {
		inner, err := parseBare(target)
		if err != nil {
			return nil, err
		}
		inner.Raw = s
		inner.Attribute = attr
		return inner, nil
	}
	return parseBare(s)
}

func parseBare(s string) (*Locator, error) {
	switch {
	case strings.HasPrefix(s, "text=/"):
		m := textRegex.FindStringSubmatch(s)
		if m == nil {
			return nil, fmt.Errorf("locator: malformed text regex %q", s)
		}
		return &Locator{Kind: KindTextRegex, Raw: s, RegexPattern: m[1], RegexFlags: m[2]}, nil

	case strings.HasPrefix(s, "text="):
		lit := strings.TrimPrefix(s, "text=")
		if lit == "" {
			return nil, fmt.Errorf("locator: empty text literal in %q", s)
		}
		return &Locator{Kind: KindText, Raw: s, TextLiteral: lit}, nil

	case strings.HasPrefix(s, "role="):
		m := roleRegex.FindStringSubmatch(s)
		if m == nil {
			return nil, fmt.Errorf("locator: malformed role locator %q", s)
		}
		return &Locator{Kind: KindRole, Raw: s, Role: m[1], AccessName: m[2]}, nil

	case strings.HasPrefix(s, "css:"):
		expr := strings.TrimPrefix(s, "css:")
		if expr == "" {
			return nil, fmt.Errorf("locator: empty css selector in %q", s)
		}
		return &Locator{Kind: KindCSS, Raw: s, Expr: expr}, nil

	case strings.HasPrefix(s, "xpath:"):
		expr := strings.TrimPrefix(s, "xpath:")
		if expr == "" {
			return nil, fmt.Errorf("locator: empty xpath expression in %q", s)
		}
		return &Locator{Kind: KindXPath, Raw: s, Expr: expr}, nil

	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		m := attrRegex.FindStringSubmatch(s)
		if m == nil {
			return nil, fmt.Errorf("locator: malformed attribute locator %q", s)
		}
		return &Locator{Kind: KindAttribute, Raw: s, AttrName: m[1], AttrValue: m[2]}, nil

	default:
		return nil, fmt.Errorf("locator: unrecognized grammar in %q", s)
	}
}

// splitAttributeSuffix splits an "<selector>::<attr>" form used by
// attributeEquals assertions. Returns hasAttrSuffix=false for ordinary
// locators that happen not to contain "::".
func splitAttributeSuffix(s string) (target, attr string, hasAttrSuffix bool) {
	idx := strings.LastIndex(s, "::")
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+2:], true
}

// String renders the locator back to its canonical grammar string. For a
// Locator produced by Parse, String() always equals Raw.
func (l *Locator) String() string {
	if l.Raw != "" {
		return l.Raw
	}
	var base string
	switch l.Kind {
	case KindText:
		base = "text=" + l.TextLiteral
	case KindTextRegex:
		base = fmt.Sprintf("text=/%s/%s", l.RegexPattern, l.RegexFlags)
	case KindRole:
		if l.AccessName != "" {
			base = fmt.Sprintf("role=%s[name=%s]", l.Role, l.AccessName)
		} else {
			base = "role=" + l.Role
		}
	case KindAttribute:
		base = fmt.Sprintf("[%s=%s]", l.AttrName, l.AttrValue)
	case KindCSS:
		base = "css:" + l.Expr
	case KindXPath:
		base = "xpath:" + l.Expr
	}
	if l.Attribute != "" {
		return base + "::" + l.Attribute
	}
	return base
}
