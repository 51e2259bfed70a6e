package hepmc3

import (
	"strconv"
	"strings"

	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
)

// encodeAttr renders an attribute value in the Asciiv3 attribute
// grammar: a kind tag, a space, and a payload.
//
//	B 1            boolean (0 or 1)
//	I 42           integer
//	D 0.118        double, shortest round-trip representation
//	S pp collision string, rest of the field (escaped)
//	L [I 1;S a\;b] list, elements separated by ';' inside brackets
//
// Strings escape backslash, semicolon, and both brackets so that list
// payloads parse unambiguously at any nesting depth. Line breaks are
// escaped as \n and \r: the record grammar is line oriented and a raw
// newline would end the record mid-value.
func encodeAttr(a event.Attribute) string {
	switch a.Kind() {
	case event.AttrBool:
		v, _ := a.AsBool()
		if v {
			return "B 1"
		}
		return "B 0"
	case event.AttrInt:
		v, _ := a.AsInt()
		return "I " + strconv.FormatInt(v, 10)
	case event.AttrDouble:
		v, _ := a.AsDouble()
		return "D " + formatFloat(v)
	case event.AttrString:
		v, _ := a.AsString()
		return "S " + escapeAttrString(v)
	case event.AttrList:
		elems, _ := a.AsList()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = encodeAttr(e)
		}
		return "L [" + strings.Join(parts, ";") + "]"
	default:
		return ""
	}
}

func decodeAttr(s string) (event.Attribute, error) {
	if len(s) < 1 {
		return event.Attribute{}, errors.Wrap(errors.ErrUnsupportedAttribute, "empty attribute value")
	}
	kind := s[0]
	var payload string
	if len(s) > 2 {
		payload = s[2:]
	}
	switch kind {
	case 'B':
		return event.Bool(payload == "1"), nil
	case 'I':
		v, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return event.Attribute{}, errors.Wrapf(errors.ErrUnsupportedAttribute, "bad integer %q", payload)
		}
		return event.Int(v), nil
	case 'D':
		v, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return event.Attribute{}, errors.Wrapf(errors.ErrUnsupportedAttribute, "bad double %q", payload)
		}
		return event.Double(v), nil
	case 'S':
		return event.String(unescapeAttrString(payload)), nil
	case 'L':
		return decodeAttrList(payload)
	default:
		return event.Attribute{}, errors.Wrapf(errors.ErrUnsupportedAttribute, "unknown kind %q", string(kind))
	}
}

func decodeAttrList(payload string) (event.Attribute, error) {
	if len(payload) < 2 || payload[0] != '[' || payload[len(payload)-1] != ']' {
		return event.Attribute{}, errors.Wrap(errors.ErrUnsupportedAttribute, "malformed list payload")
	}
	inner := payload[1 : len(payload)-1]
	if inner == "" {
		return event.List(), nil
	}

	var elems []event.Attribute
	for _, part := range splitList(inner) {
		e, err := decodeAttr(part)
		if err != nil {
			return event.Attribute{}, err
		}
		elems = append(elems, e)
	}
	return event.List(elems...), nil
}

// splitList splits on top-level ';', respecting escapes and nested
// brackets.
func splitList(s string) []string {
	var parts []string
	depth := 0
	start := 0
	escaped := false
	for i := 0; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case '[':
			depth++
		case ']':
			depth--
		case ';':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func escapeAttrString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', ';', '[', ']':
			b.WriteByte('\\')
			b.WriteByte(s[i])
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func unescapeAttrString(s string) string {
	var b strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		if escaped {
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(s[i])
			}
			escaped = false
			continue
		}
		if s[i] == '\\' {
			escaped = true
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// formatFloat renders a double in the shortest representation that
// parses back to the identical bits. Full precision round trips are
// part of the format contract.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
