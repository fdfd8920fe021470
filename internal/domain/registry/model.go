package registry

import (
	"fmt"
	"math"
	"strings"
)

// Key identifies one registry sequence.
type Key struct {
	Category string
	ScopeKey string
}

// Plan pairs a sequence with the template its values are rendered by.
type Plan struct {
	Key      Key
	Template Template
}

// Format renders seq for the plan's scope.
func (p Plan) Format(seq int64) string {
	return p.Template.Format(seq, p.Key.ScopeKey)
}

// Reservation is one issued sequence value and its rendered number.
type Reservation struct {
	Key    Key
	Seq    int64
	Number string
}

// Template describes how a category's registry numbers are rendered.
type Template struct {
	Prefix      string `json:"prefix" yaml:"prefix"`
	Width       int    `json:"width" yaml:"width"`
	Separator   string `json:"separator" yaml:"separator"`
	MaxSequence int64  `json:"max_sequence,omitempty" yaml:"max_sequence,omitempty"`
}

// Format renders seq within scopeKey, e.g. "ORD 0007/2568".
func (t Template) Format(seq int64, scopeKey string) string {
	var b strings.Builder
	b.WriteString(t.Prefix)
	if t.Width > 0 {
		fmt.Fprintf(&b, "%0*d", t.Width, seq)
	} else {
		fmt.Fprintf(&b, "%d", seq)
	}
	if scopeKey != "" {
		sep := t.Separator
		if sep == "" {
			sep = "/"
		}
		b.WriteString(sep)
		b.WriteString(scopeKey)
	}
	return b.String()
}

// Limit returns the highest sequence value the template may issue.
func (t Template) Limit() int64 {
	if t.MaxSequence <= 0 {
		return math.MaxInt64
	}
	return t.MaxSequence
}

// DefaultTemplates returns the numbering templates used when a school has
// not configured its own.
func DefaultTemplates() map[string]Template {
	return map[string]Template{
		"incoming_letter":   {Prefix: "IN ", Width: 4, Separator: "/"},
		"outgoing_letter":   {Prefix: "OUT ", Width: 4, Separator: "/"},
		"order":             {Prefix: "ORD ", Width: 3, Separator: "/"},
		"internal_proposal": {Prefix: "MEMO ", Width: 4, Separator: "/"},
	}
}
