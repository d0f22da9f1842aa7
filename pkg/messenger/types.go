// Package messenger implements the stateful chat-widget core: the ordered
// message log with declarative filters, a schema-driven settings store,
// speech input/output orchestration and per-change persistence.
package messenger

import (
	"strconv"
	"strings"
)

// Message types.
const (
	TypeUser = "user"
	TypeBot  = "bot"
)

// Message is one turn in the conversation. A message carries at least one
// of Content or Images; ID is optional and falls back to CreatedAt as the
// identity key.
type Message struct {
	ID        string         `json:"id,omitempty"`
	Type      string         `json:"type"`
	Content   string         `json:"content,omitempty"`
	Images    []string       `json:"image,omitempty"` // base64 payloads, no data-URI prefix
	CreatedAt int64          `json:"createdAt,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"` // host-specific extension fields
}

// Key returns the identity used by patch/remove calls. Two id-less
// messages created in the same millisecond share a key; hosts that stream
// updates must supply explicit ids.
func (m Message) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return strconv.FormatInt(m.CreatedAt, 10)
}

func (m Message) speakable() bool {
	return m.Type == TypeBot && strings.TrimSpace(m.Content) != ""
}

// MessagePatch is a partial message; nil fields are left untouched by
// Patch and the patch wins on conflicts.
type MessagePatch struct {
	Type    *string        `json:"type,omitempty"`
	Content *string        `json:"content,omitempty"`
	Images  []string       `json:"image,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Option is one selectable value of a select/radio field or a filter.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Setting field kinds.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
)

// SettingField describes one typed settings entry. Min/Max/Step apply to
// number fields, Options to select fields.
type SettingField struct {
	ID      string    `json:"id"`
	Label   string    `json:"label"`
	Type    FieldType `json:"type"`
	Default any       `json:"defaultValue,omitempty"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
	Step    float64   `json:"step,omitempty"`
	Options []Option  `json:"options,omitempty"`
}

// Settings maps field ids to scalar values (string, number or bool).
type Settings map[string]any

// FilterSpec is a declarative predicate over messages.
type FilterSpec struct {
	ID       string
	Label    string
	Options  []Option
	Multiple bool
	Predicate func(m Message, value string) bool
}

// FilterValue is the selection of one filter: Value for single-select
// filters, Values for multi-select ones. The zero value means "no
// selection", which passes every message through.
type FilterValue struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

func (v FilterValue) empty() bool {
	return v.Value == "" && len(v.Values) == 0
}

// FilterState maps filter ids to their current selection.
type FilterState map[string]FilterValue

// SendArgs is handed to the host's OnSend callback on every user send.
type SendArgs struct {
	Text     string
	IsImage  bool
	Settings Settings
}
