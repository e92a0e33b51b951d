package security

import (
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if !strings.HasPrefix(encoded, "argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", encoded)
	}

	if !VerifyPassword("correct horse battery staple", encoded) {
		t.Fatalf("expected password to verify against its own hash")
	}

	if VerifyPassword("wrong password", encoded) {
		t.Fatalf("expected mismatched password to fail verification")
	}
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	first, err := HashPassword("samepassword123")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("samepassword123")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if first == second {
		t.Fatalf("expected distinct hashes for repeated input")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	cases := []string{
		"",
		"not-a-hash",
		"argon2id$v=19$m=65536,t=3,p=4$short",
		"argon2id$v=19$m=banana,t=3,p=4$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"bcrypt$whatever",
		"salt:hash",
	}

	for _, encoded := range cases {
		if VerifyPassword("password123", encoded) {
			t.Fatalf("expected malformed hash %q to verify false", encoded)
		}
	}
}

func TestConfigureArgon2RejectsWeakParams(t *testing.T) {
	defer func() {
		if err := ConfigureArgon2(DefaultArgon2Config()); err != nil {
			t.Fatalf("restore default config: %v", err)
		}
	}()

	weak := Argon2Config{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	if err := ConfigureArgon2(weak); err == nil {
		t.Fatalf("expected weak memory setting to be rejected")
	}

	valid := Argon2Config{Memory: 32 * 1024, Iterations: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32}
	if err := ConfigureArgon2(valid); err != nil {
		t.Fatalf("expected valid config to be accepted: %v", err)
	}

	if got := CurrentArgon2Config(); got != valid {
		t.Fatalf("expected active config %+v, got %+v", valid, got)
	}
}
