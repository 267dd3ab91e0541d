// Package trace turns dbus-monitor output into notifications.
//
// The monitor prints each bus message as a header line followed by one
// line per argument. Notify has a fixed positional signature
// (app_name, replaces_id, app_icon, summary, body, actions, hints, timeout),
// so the parser counts arguments instead of decoding types it does not need.
// Unexpected lines are skipped; the parser never returns an error.
package trace

import (
	"strings"
	"time"

	"github.com/abelbrown/sidebar/internal/model"
)

// State is the parser's position relative to a call of interest.
type State int

const (
	Idle State = iota
	InCall
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InCall:
		return "in_call"
	default:
		return "unknown"
	}
}

// Line shapes emitted by dbus-monitor. Matching is case-sensitive.
const (
	methodCallMarker = "method call"
	stringPrefix     = `string "`
	arrayPrefix      = "array ["
	dictEntryPrefix  = "dict entry("
)

// integerPrefixes are counted as positional arguments without content.
var integerPrefixes = []string{"uint16", "int16", "uint32", "int32", "uint64", "int64"}

// DefaultMember is the org.freedesktop.Notifications method that shows a popup.
const DefaultMember = "Notify"

// Schema binds positional argument indices to notification fields.
type Schema struct {
	Source  int `mapstructure:"source" json:"source"`
	Summary int `mapstructure:"summary" json:"summary"`
	Body    int `mapstructure:"body" json:"body"`
}

// DefaultSchema matches the Notify signature.
var DefaultSchema = Schema{Source: 0, Summary: 3, Body: 4}

// last is the highest bound index; an array at or after it closes the call.
func (s Schema) last() int {
	return max(s.Source, s.Summary, s.Body)
}

// accumulator is the scratch state for the call being parsed.
type accumulator struct {
	fields []string

	// open holds a string argument whose closing quote has not arrived yet.
	open    strings.Builder
	inQuote bool
}

func (a *accumulator) reset() {
	a.fields = a.fields[:0]
	a.open.Reset()
	a.inQuote = false
}

func (a *accumulator) field(i int) string {
	if i < 0 || i >= len(a.fields) {
		return ""
	}
	return a.fields[i]
}

// Parser is a line-at-a-time state machine. Not safe for concurrent use.
type Parser struct {
	member string
	schema Schema
	now    func() time.Time

	state State
	acc   accumulator
}

// NewParser creates a Parser for member using schema.
// An empty member falls back to DefaultMember.
func NewParser(member string, schema Schema) *Parser {
	if member == "" {
		member = DefaultMember
	}
	return &Parser{
		member: member,
		schema: schema,
		now:    time.Now,
	}
}

// State returns the current parser state.
func (p *Parser) State() State {
	return p.state
}

// FieldCount returns how many positional arguments the current call has seen.
func (p *Parser) FieldCount() int {
	return len(p.acc.fields)
}

// Feed consumes one line. It returns a notification (ID unset) when the line
// completes a call of interest.
func (p *Parser) Feed(line string) (model.Notification, bool) {
	line = strings.TrimSpace(line)

	if strings.Contains(line, methodCallMarker) && strings.Contains(line, p.member) {
		p.state = InCall
		p.acc.reset()
		return model.Notification{}, false
	}

	if p.state != InCall {
		return model.Notification{}, false
	}

	if p.acc.inQuote {
		p.continueString(line)
		return model.Notification{}, false
	}

	switch {
	case strings.HasPrefix(line, stringPrefix):
		p.beginString(line[len(stringPrefix):])

	case hasIntegerPrefix(line):
		// occupies a position but carries no text
		p.acc.fields = append(p.acc.fields, "")

	case strings.HasPrefix(line, arrayPrefix):
		idx := len(p.acc.fields)
		p.acc.fields = append(p.acc.fields, "")
		if idx >= p.schema.last() && p.complete() {
			n := p.build()
			p.state = Idle
			p.acc.reset()
			return n, true
		}

	case strings.HasPrefix(line, dictEntryPrefix):
		// hint entries: not positional
	}

	return model.Notification{}, false
}

// beginString handles the text after `string "`.
func (p *Parser) beginString(rest string) {
	if strings.HasSuffix(rest, `"`) {
		p.acc.fields = append(p.acc.fields, rest[:len(rest)-1])
		return
	}
	p.acc.inQuote = true
	p.acc.open.Reset()
	p.acc.open.WriteString(rest)
}

// continueString appends a line of a multi-line string argument.
func (p *Parser) continueString(line string) {
	p.acc.open.WriteByte('\n')
	if strings.HasSuffix(line, `"`) {
		p.acc.open.WriteString(line[:len(line)-1])
		p.acc.fields = append(p.acc.fields, p.acc.open.String())
		p.acc.open.Reset()
		p.acc.inQuote = false
		return
	}
	p.acc.open.WriteString(line)
}

func (p *Parser) complete() bool {
	return p.acc.field(p.schema.Source) != "" || p.acc.field(p.schema.Summary) != ""
}

func (p *Parser) build() model.Notification {
	return model.Notification{
		SourceName: p.acc.field(p.schema.Source),
		Summary:    p.acc.field(p.schema.Summary),
		Body:       p.acc.field(p.schema.Body),
		ObservedAt: p.now().Truncate(time.Second),
	}
}

func hasIntegerPrefix(line string) bool {
	for _, prefix := range integerPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
