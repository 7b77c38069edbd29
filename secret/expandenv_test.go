package secret

import (
	"strings"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("EXPAND_TEST_TOKEN", "abc123")

	got, err := ExpandEnvStrict("Bearer ${EXPAND_TEST_TOKEN}")
	if err != nil {
		t.Fatalf("ExpandEnvStrict: %v", err)
	}
	if got != "Bearer abc123" {
		t.Errorf("got %q", got)
	}
}

func TestExpandEnvStrictMissing(t *testing.T) {
	_, err := ExpandEnvStrict("${EXPAND_TEST_DEFINITELY_MISSING}")
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
	if !strings.Contains(err.Error(), "EXPAND_TEST_DEFINITELY_MISSING") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestExpandEnvStrictMultipleMissing(t *testing.T) {
	_, err := ExpandEnvStrict("${ZEXPAND_MISSING_B} ${AEXPAND_MISSING_A}")
	if err == nil {
		t.Fatal("expected error")
	}
	// Names are reported sorted for stable messages.
	msg := err.Error()
	if strings.Index(msg, "AEXPAND_MISSING_A") > strings.Index(msg, "ZEXPAND_MISSING_B") {
		t.Errorf("missing variables not sorted: %v", err)
	}
}

func TestExpandEnvStrictEscape(t *testing.T) {
	got, err := ExpandEnvStrict("cost is $$5")
	if err != nil {
		t.Fatalf("ExpandEnvStrict: %v", err)
	}
	if got != "cost is $5" {
		t.Errorf("got %q", got)
	}
}

func TestExpandEnvStrictNoVariables(t *testing.T) {
	got, err := ExpandEnvStrict("plain value")
	if err != nil {
		t.Fatalf("ExpandEnvStrict: %v", err)
	}
	if got != "plain value" {
		t.Errorf("got %q", got)
	}
}
