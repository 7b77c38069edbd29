package capture

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPolicyDeniesByDefault(t *testing.T) {
	p := NewPolicy(Config{})
	for _, cat := range Categories {
		if p.Allows(cat, nil) {
			t.Errorf("zero config allows %s", cat)
		}
	}
}

func TestPolicyConfigEnables(t *testing.T) {
	p := NewPolicy(Config{InputMessages: true, ToolResults: true})

	if !p.Allows(InputMessages, nil) {
		t.Error("input messages should be allowed")
	}
	if !p.Allows(ToolResults, nil) {
		t.Error("tool results should be allowed")
	}
	if p.Allows(SystemInstructions, nil) {
		t.Error("system instructions should stay denied")
	}
	if p.Allows(OutputMessages, nil) {
		t.Error("output messages should stay denied")
	}
}

func TestPolicyOverridePrecedence(t *testing.T) {
	p := NewPolicy(Config{InputMessages: true})

	if p.Allows(InputMessages, Deny(InputMessages)) {
		t.Error("override deny should beat config allow")
	}
	if !p.Allows(OutputMessages, Allow(OutputMessages)) {
		t.Error("override allow should beat config deny")
	}
	// Categories absent from the override fall through to config.
	if !p.Allows(InputMessages, Allow(OutputMessages)) {
		t.Error("unrelated override should not affect config decision")
	}
}

func TestPolicyNilSafe(t *testing.T) {
	var p *Policy
	if p.Allows(InputMessages, Allow(InputMessages)) {
		t.Error("nil policy must deny everything")
	}
	if out, ok := p.Redact(InputMessages, "hello"); !ok || out != "hello" {
		t.Errorf("nil policy Redact = %q, %v", out, ok)
	}
}

func TestPolicyRedactor(t *testing.T) {
	p := NewPolicy(Config{ToolResults: true})
	p.SetRedactor(ToolResults, func(cat Category, content string) (string, error) {
		return strings.ReplaceAll(content, "secret", "[MASKED]"), nil
	})

	out, ok := p.Redact(ToolResults, "the secret value")
	if !ok {
		t.Fatal("redaction should succeed")
	}
	if out != "the [MASKED] value" {
		t.Errorf("redacted = %q", out)
	}

	// Other categories keep identity behavior.
	out, ok = p.Redact(InputMessages, "untouched")
	if !ok || out != "untouched" {
		t.Errorf("identity redaction = %q, %v", out, ok)
	}
}

func TestPolicyGlobalRedactor(t *testing.T) {
	p := NewPolicy(Config{})
	p.SetGlobalRedactor(func(cat Category, content string) (string, error) {
		return "[GLOBAL]", nil
	})
	p.SetRedactor(ToolResults, func(cat Category, content string) (string, error) {
		return "[SPECIFIC]", nil
	})

	if out, _ := p.Redact(InputMessages, "x"); out != "[GLOBAL]" {
		t.Errorf("global redactor: got %q", out)
	}
	if out, _ := p.Redact(ToolResults, "x"); out != "[SPECIFIC]" {
		t.Errorf("specific redactor should win: got %q", out)
	}
}

func TestPolicyRedactorError(t *testing.T) {
	p := NewPolicy(Config{})
	p.SetRedactor(InputMessages, func(Category, string) (string, error) {
		return "", errors.New("redaction broke")
	})

	out, ok := p.Redact(InputMessages, "sensitive")
	if ok {
		t.Error("failed redaction must report ok=false")
	}
	if out != "" {
		t.Errorf("failed redaction must not leak content, got %q", out)
	}
}

func TestPolicyRedactorPanic(t *testing.T) {
	p := NewPolicy(Config{})
	p.SetRedactor(InputMessages, func(Category, string) (string, error) {
		panic("redactor bug")
	})

	out, ok := p.Redact(InputMessages, "sensitive")
	if ok {
		t.Error("panicking redactor must report ok=false")
	}
	if out != "" {
		t.Errorf("panicking redactor must not leak content, got %q", out)
	}
}

func TestSetRedactorNilRestoresIdentity(t *testing.T) {
	p := NewPolicy(Config{})
	p.SetRedactor(InputMessages, func(Category, string) (string, error) {
		return "masked", nil
	})
	p.SetRedactor(InputMessages, nil)

	if out, ok := p.Redact(InputMessages, "plain"); !ok || out != "plain" {
		t.Errorf("after clearing redactor: got %q, %v", out, ok)
	}
}

func TestTruncateResult(t *testing.T) {
	short := "short result"
	if got := TruncateResult(short); got != short {
		t.Errorf("short result should pass through, got %q", got)
	}

	long := strings.Repeat("x", MaxToolResultLen+500)
	got := TruncateResult(long)
	want := strings.Repeat("x", MaxToolResultLen) + fmt.Sprintf("... (truncated %d chars)", 500)
	if got != want {
		t.Errorf("truncated result mismatch:\n got %d bytes\nwant %d bytes", len(got), len(want))
	}
}

func TestTruncateResultKeepsValidUTF8(t *testing.T) {
	// 400 three-byte runes: the 1000-byte limit falls one byte into the
	// 334th rune, so a byte-offset cut would produce an invalid string.
	long := strings.Repeat("€", 400)
	got := TruncateResult(long)

	if !utf8.ValidString(got) {
		t.Fatal("truncated result is not valid UTF-8")
	}
	if len(got) > MaxToolResultLen+40 {
		t.Errorf("result too long: %d bytes", len(got))
	}
	kept := strings.TrimSuffix(got, fmt.Sprintf("... (truncated %d chars)", 3*400-999))
	if kept == got {
		t.Fatalf("missing truncation marker: %q", got[len(got)-40:])
	}
	if strings.Count(kept, "€") != 333 {
		t.Errorf("kept %d runes, want 333 whole runes", strings.Count(kept, "€"))
	}
}

func TestTruncateEdgeCases(t *testing.T) {
	if got := Truncate("anything", 0); got != "anything" {
		t.Errorf("max<=0 should pass through, got %q", got)
	}
	if got := Truncate("abc", 3); got != "abc" {
		t.Errorf("exact length should pass through, got %q", got)
	}
}
