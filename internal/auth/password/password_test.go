package password

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=1,p=4$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	if !Verify("correct horse", encoded) {
		t.Fatal("expected password to verify")
	}
	if Verify("wrong horse", encoded) {
		t.Fatal("expected wrong password to fail")
	}
	if NeedsRehash(encoded) {
		t.Fatal("fresh hash should not need rehash")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, encoded := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$AA$AA", "$argon2id$v=19$bogus$AA$AA"} {
		if Verify("x", encoded) {
			t.Fatalf("expected %q to be rejected", encoded)
		}
		if !NeedsRehash(encoded) {
			t.Fatalf("expected %q to need rehash", encoded)
		}
	}
}
