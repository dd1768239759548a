package auth

import "testing"

// TestScramCredentialsOrder pins the (Username, Password, Identity) order
// sasl.Credentials requires. A past regression swapped Username for nil and
// shifted Password into the Username slot, silently authenticating as the
// wrong principal.
func TestScramCredentialsOrder(t *testing.T) {
	fn := scramCredentials("alice", "s3cret")
	user, pass, identity := fn()

	if string(user) != "alice" {
		t.Errorf("Username = %q, want %q", user, "alice")
	}
	if string(pass) != "s3cret" {
		t.Errorf("Password = %q, want %q", pass, "s3cret")
	}
	if identity != nil {
		t.Errorf("Identity = %q, want nil", identity)
	}
}

func TestNewSCRAMRequiresMechanism(t *testing.T) {
	_, err := NewSCRAM("alice", "secret", []string{"SCRAM-SHA-1"})
	if err == nil {
		t.Fatal("expected ErrUnsupportedMechanism, got nil")
	}
	if _, ok := err.(*ErrUnsupportedMechanism); !ok {
		t.Errorf("err = %T, want *ErrUnsupportedMechanism", err)
	}
}

func TestNewSCRAMAcceptsMechanismCaseInsensitively(t *testing.T) {
	p, err := NewSCRAM("alice", "secret", []string{"scram-sha-256"})
	if err != nil {
		t.Fatalf("NewSCRAM: %v", err)
	}
	if p.Name() != "SCRAM-SHA-256" {
		t.Errorf("Name() = %q, want SCRAM-SHA-256", p.Name())
	}
}

func TestContainsFold(t *testing.T) {
	if !containsFold([]string{"FOO", "BAR"}, "bar") {
		t.Error("expected case-insensitive match")
	}
	if containsFold([]string{"FOO"}, "baz") {
		t.Error("expected no match")
	}
}
