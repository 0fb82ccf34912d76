package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// TechStack is the canonical in-memory form of a project's technology tags: trimmed,
// non-empty and unique ignoring case. Older rows stored the column either as a JSON
// array, a Postgres array literal or a comma separated string; all three are decoded
// here and nowhere else.
type TechStack []string

// NewTechStack normalizes tags, keeping the first spelling of duplicates.
func NewTechStack(tags ...string) TechStack {
	seen := make(map[string]struct{}, len(tags))
	out := make(TechStack, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ParseTechStack decodes any of the legacy encodings.
func ParseTechStack(raw string) TechStack {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "" || raw == "null":
		return TechStack{}
	case strings.HasPrefix(raw, "["):
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return NewTechStack(tags...)
		}
		return NewTechStack(splitTags(strings.Trim(raw, "[]"))...)
	case strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}"):
		return NewTechStack(splitTags(strings.Trim(raw, "{}"))...)
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return ParseTechStack(s)
		}
	}
	return NewTechStack(splitTags(raw)...)
}

func splitTags(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	return parts
}

// ContainsSubstring reports whether any tag contains needle, ignoring case.
func (t TechStack) ContainsSubstring(needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return false
	}
	for _, tag := range t {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Value stores the tags as a JSON array.
func (t TechStack) Value() (driver.Value, error) {
	b, err := json.Marshal([]string(NewTechStack(t...)))
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b).Value()
}

func (t *TechStack) Scan(value any) error {
	if value == nil {
		*t = TechStack{}
		return nil
	}
	var raw datatypes.JSON
	if err := raw.Scan(value); err != nil {
		return fmt.Errorf("scan tech_stack: %w", err)
	}
	*t = ParseTechStack(string(raw))
	return nil
}

func (TechStack) GormDataType() string {
	return "json"
}

func (TechStack) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "json"
}

func (t TechStack) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// UnmarshalJSON accepts a JSON array or a comma separated string.
func (t *TechStack) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var tags []string
		if err := json.Unmarshal(data, &tags); err != nil {
			return err
		}
		*t = NewTechStack(tags...)
		return nil
	}
	*t = ParseTechStack(string(data))
	return nil
}
