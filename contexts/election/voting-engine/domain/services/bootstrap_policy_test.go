package services

import "testing"

func TestImplicitBootstrapTrigger(t *testing.T) {
	if got := ImplicitBootstrapTrigger(0, "Admin@X.edu ", "admin@x.edu"); got != BootstrapConfiguredAdmin {
		t.Fatalf("expected configured admin trigger, got %q", got)
	}
	if got := ImplicitBootstrapTrigger(0, "someone@x.edu", "admin@x.edu"); got != BootstrapNone {
		t.Fatalf("expected no trigger for non matching voter, got %q", got)
	}
	if got := ImplicitBootstrapTrigger(0, "someone@x.edu", ""); got != BootstrapFirstVoter {
		t.Fatalf("expected first voter trigger, got %q", got)
	}
	if got := ImplicitBootstrapTrigger(1, "admin@x.edu", "admin@x.edu"); got != BootstrapNone {
		t.Fatalf("expected no trigger once an admin exists, got %q", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	email, err := NormalizeEmail("  A@X.EDU ")
	if err != nil || email != "a@x.edu" {
		t.Fatalf("unexpected normalize result: %q %v", email, err)
	}
	if _, err := NormalizeEmail("not-an-email"); err == nil {
		t.Fatalf("expected invalid email error")
	}
}
