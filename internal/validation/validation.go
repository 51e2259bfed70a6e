// Package validation provides centralized input validation for names
// that end up verbatim on ASCII record lines.
//
// Attribute keys, weight names, and tool fields are written into line
// oriented formats where a rogue separator or newline corrupts the
// stream for every reader after it. The rules here reject exactly the
// characters the grammars cannot carry.
package validation

import (
	"fmt"
	"strings"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for record-line names.
type NameRules struct {
	MinLength   int
	MaxLength   int
	AllowSpaces bool
	AllowQuotes bool
}

// AttributeKeyRules returns the rules for attribute keys. Keys sit
// unquoted between space-separated fields, so spaces cannot be
// carried.
func AttributeKeyRules() NameRules {
	return NameRules{
		MinLength:   1,
		MaxLength:   255,
		AllowSpaces: false,
		AllowQuotes: true,
	}
}

// WeightNameRules returns the rules for positional weight names in
// formats that quote them. Spaces survive inside the quotes; the
// quote character itself cannot.
func WeightNameRules() NameRules {
	return NameRules{
		MinLength:   1,
		MaxLength:   255,
		AllowSpaces: true,
		AllowQuotes: false,
	}
}

// BareWeightNameRules returns the rules for weight names in formats
// that list them space-separated and unquoted.
func BareWeightNameRules() NameRules {
	return NameRules{
		MinLength:   1,
		MaxLength:   255,
		AllowSpaces: false,
		AllowQuotes: true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if (r == ' ' || r == '\t') && !rules.AllowSpaces {
			return fmt.Errorf("name cannot contain whitespace at position %d", i)
		}
		if r == '"' && !rules.AllowQuotes {
			return fmt.Errorf("name cannot contain quote characters at position %d", i)
		}
	}

	return nil
}

// ValidateAttributeKey validates an attribute key with the key rules.
func ValidateAttributeKey(key string) error {
	return ValidateName(key, AttributeKeyRules())
}

// =============================================================================
// Weight Name Validation
// =============================================================================

// ValidateWeightNames validates a full weight-name list. Names must
// also be unique: a duplicate would make the positional mapping
// ambiguous on read.
func ValidateWeightNames(names []string, rules NameRules) error {
	seen := make(map[string]int, len(names))
	for i, name := range names {
		if err := ValidateName(name, rules); err != nil {
			return fmt.Errorf("weight name %d: %w", i, err)
		}
		if j, dup := seen[name]; dup {
			return fmt.Errorf("weight name %d duplicates name %d (%q)", i, j, name)
		}
		seen[name] = i
	}
	return nil
}

// =============================================================================
// Tool Field Validation
// =============================================================================

// ValidateToolField validates one field of a tool record. The fields
// are escaped on write, so only line breaks are fatal.
func ValidateToolField(field string) error {
	if strings.ContainsAny(field, "\n\r") {
		return fmt.Errorf("tool field cannot contain line breaks")
	}
	return nil
}
