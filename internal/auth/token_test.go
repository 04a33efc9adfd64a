package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	sec := "secret123"
	sid := "abc"
	exp := time.Now().Add(5 * time.Minute).Unix()

	tok := GenerateSessionToken(sec, sid, exp)

	gotSID, gotExp, err := ValidateSessionToken(sec, tok, sid, time.Now(), 30)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if gotSID != sid || gotExp != exp {
		t.Fatalf("mismatch: %s/%d", gotSID, gotExp)
	}
}

func TestBadSignature(t *testing.T) {
	sec := "secret123"
	sid := "abc"
	exp := time.Now().Add(5 * time.Minute).Unix()
	tok := GenerateSessionToken(sec, sid, exp)

	// flip a char
	if tok[0] == 'A' {
		tok = "B" + tok[1:]
	} else {
		tok = "A" + tok[1:]
	}

	if _, _, err := ValidateSessionToken(sec, tok, sid, time.Now(), 30); err == nil {
		t.Fatalf("expected error for bad token")
	}
}

func TestWrongSession(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Unix()
	tok := GenerateSessionToken("sec", "abc", exp)

	if _, _, err := ValidateSessionToken("sec", tok, "other", time.Now(), 30); err != ErrTokenSID {
		t.Fatalf("err = %v, want ErrTokenSID", err)
	}
}

func TestExpiredToken(t *testing.T) {
	exp := time.Now().Add(-10 * time.Minute).Unix()
	tok := GenerateSessionToken("sec", "abc", exp)

	if _, _, err := ValidateSessionToken("sec", tok, "abc", time.Now(), 30); err != ErrTokenExp {
		t.Fatalf("err = %v, want ErrTokenExp", err)
	}
}
