package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	token, err := IssueToken("secret", "user-1", true, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || !claims.Admin {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	expired, err := IssueToken("secret", "user-1", false, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	valid, err := IssueToken("secret", "user-1", false, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	for name, token := range map[string]string{
		"garbage": "not.a.token",
		"expired": expired,
	} {
		if _, err := ParseToken("secret", token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: want ErrInvalidToken, got %v", name, err)
		}
	}

	if _, err := ParseToken("wrong-secret", valid); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: want ErrInvalidToken, got %v", err)
	}
}
