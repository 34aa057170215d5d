package credential

import "testing"

func TestSHA3Verifier(t *testing.T) {
	v := NewSHA3Verifier()

	hash := v.Hash("some refresh token")
	if hash == "" || hash == "some refresh token" {
		t.Fatalf("Hash() returned %q, want an encoded digest", hash)
	}

	if v.Hash("some refresh token") != hash {
		t.Errorf("Hash() is not deterministic")
	}

	if !v.Verify("some refresh token", hash) {
		t.Errorf("Verify() rejected the original secret")
	}
	if v.Verify("another token", hash) {
		t.Errorf("Verify() accepted a different secret")
	}
	if v.Verify("some refresh token", "not-a-hash") {
		t.Errorf("Verify() accepted a bogus stored hash")
	}
}
