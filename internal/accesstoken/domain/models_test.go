package domain

import (
	"testing"
	"time"
)

func TestAccessTokenValidAt(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	cases := []struct {
		name  string
		token AccessToken
		want  bool
	}{
		{name: "active without expiry", token: AccessToken{IsActive: true}, want: true},
		{name: "active future expiry", token: AccessToken{IsActive: true, ExpiresAt: &future}, want: true},
		{name: "expiry equal to now", token: AccessToken{IsActive: true, ExpiresAt: &now}, want: false},
		{name: "expired", token: AccessToken{IsActive: true, ExpiresAt: &past}, want: false},
		{name: "inactive", token: AccessToken{IsActive: false}, want: false},
	}

	for _, tc := range cases {
		if got := tc.token.ValidAt(now); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestHashSecretIsStable(t *testing.T) {
	if HashSecret("bat_x") != HashSecret("bat_x") {
		t.Fatal("expected stable hash")
	}
	if HashSecret("bat_x") == HashSecret("bat_y") {
		t.Fatal("expected distinct hashes")
	}
}
