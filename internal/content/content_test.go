package content

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	got := Sanitize(`hello <script>alert(1)</script>world`)
	if strings.Contains(got, "script") {
		t.Errorf("expected script tag stripped, got %q", got)
	}
	if !strings.Contains(got, "hello") || !strings.Contains(got, "world") {
		t.Errorf("expected text preserved, got %q", got)
	}
}

func TestRenderMessage(t *testing.T) {
	got, err := RenderMessage("some *emphasized* text")
	if err != nil {
		t.Fatalf("RenderMessage failed: %v", err)
	}
	if !strings.Contains(got, "<em>emphasized</em>") {
		t.Errorf("expected markdown emphasis rendered, got %q", got)
	}

	got, err = RenderMessage(`[link](javascript:alert(1))`)
	if err != nil {
		t.Fatalf("RenderMessage failed: %v", err)
	}
	if strings.Contains(got, "javascript:") {
		t.Errorf("expected javascript href stripped, got %q", got)
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"test@example.com", "a.b-c@mail.example.org"}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("expected %q to be valid: %v", email, err)
		}
	}

	invalid := []string{"", "no-at-sign", "two@@example.com", "spaces in@example.com", "nodomain@"}
	for _, email := range invalid {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("expected %q to be rejected", email)
		}
	}
}
