package capture

import (
	"fmt"
	"sync"
	"unicode/utf8"
)

// Category identifies a class of sensitive content.
type Category string

const (
	// SystemInstructions is the system prompt sent to the model.
	SystemInstructions Category = "system_instructions"
	// InputMessages is the serialized conversation sent to the model.
	InputMessages Category = "input_messages"
	// OutputMessages is the model's generated output.
	OutputMessages Category = "output_messages"
	// ToolArguments is the argument payload of a tool call.
	ToolArguments Category = "tool_arguments"
	// ToolResults is the output of a tool execution.
	ToolResults Category = "tool_results"
)

// Categories lists all known content categories.
var Categories = []Category{
	SystemInstructions,
	InputMessages,
	OutputMessages,
	ToolArguments,
	ToolResults,
}

// MaxToolResultLen bounds captured tool results.
const MaxToolResultLen = 1000

// Config enables content capture per category. The zero value denies
// everything.
type Config struct {
	SystemInstructions bool
	InputMessages      bool
	OutputMessages     bool
	ToolArguments      bool
	ToolResults        bool
}

func (c Config) allows(cat Category) bool {
	switch cat {
	case SystemInstructions:
		return c.SystemInstructions
	case InputMessages:
		return c.InputMessages
	case OutputMessages:
		return c.OutputMessages
	case ToolArguments:
		return c.ToolArguments
	case ToolResults:
		return c.ToolResults
	default:
		return false
	}
}

// Override forces capture decisions for a single call. A nil Override
// defers entirely to configuration.
type Override map[Category]bool

// Allow returns an Override permitting the given categories.
func Allow(cats ...Category) Override {
	o := make(Override, len(cats))
	for _, c := range cats {
		o[c] = true
	}
	return o
}

// Deny returns an Override rejecting the given categories.
func Deny(cats ...Category) Override {
	o := make(Override, len(cats))
	for _, c := range cats {
		o[c] = false
	}
	return o
}

// Redactor transforms content before it is attached to a span. It must be
// pure from the policy's perspective; an error or panic suppresses capture
// for that call.
type Redactor func(cat Category, content string) (string, error)

// Policy is the capture decision function. Decisions are recomputed per
// call and never cached.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Redact never panics; redactor failures report ok=false.
type Policy struct {
	cfg Config

	mu        sync.RWMutex
	redactors map[Category]Redactor
	global    Redactor
}

// NewPolicy creates a Policy from cfg with identity redaction.
func NewPolicy(cfg Config) *Policy {
	return &Policy{
		cfg:       cfg,
		redactors: make(map[Category]Redactor),
	}
}

// Allows reports whether content of the given category may be captured,
// applying the precedence chain: override, configuration, deny.
func (p *Policy) Allows(cat Category, override Override) bool {
	if p == nil {
		return false
	}
	if v, ok := override[cat]; ok {
		return v
	}
	return p.cfg.allows(cat)
}

// SetRedactor registers a redactor for one category, replacing any previous
// one. A nil redactor restores identity behavior.
func (p *Policy) SetRedactor(cat Category, fn Redactor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn == nil {
		delete(p.redactors, cat)
		return
	}
	p.redactors[cat] = fn
}

// SetGlobalRedactor registers a redactor applied to every category that has
// no category-specific redactor.
func (p *Policy) SetGlobalRedactor(fn Redactor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.global = fn
}

// Redact applies the registered redactor for cat. ok is false when a
// redactor failed, in which case the content must not be captured.
func (p *Policy) Redact(cat Category, content string) (out string, ok bool) {
	if p == nil {
		return content, true
	}

	p.mu.RLock()
	fn := p.redactors[cat]
	if fn == nil {
		fn = p.global
	}
	p.mu.RUnlock()

	if fn == nil {
		return content, true
	}

	defer func() {
		if r := recover(); r != nil {
			out, ok = "", false
		}
	}()

	redacted, err := fn(cat, content)
	if err != nil {
		return "", false
	}
	return redacted, true
}

// TruncateResult bounds a tool result to MaxToolResultLen characters,
// appending a marker noting how much was cut.
func TruncateResult(result string) string {
	return Truncate(result, MaxToolResultLen)
}

// Truncate bounds s to at most max bytes with a truncation marker. The cut
// never splits a rune: span attributes are marshaled as proto3 strings on
// export, which reject invalid UTF-8.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + fmt.Sprintf("... (truncated %d chars)", len(s)-max)
}
