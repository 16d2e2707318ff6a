package secret

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"unicode"
)

func testKey() []byte { return bytes.Repeat([]byte{7}, 32) }

func TestLocal_RoundTrip(t *testing.T) {
	c, err := NewLocal(testKey())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()

	sealed, err := c.Seal(ctx, "Str0ngPass!")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(sealed, localPrefix) || strings.Contains(sealed, "Str0ngPass!") {
		t.Fatalf("sealed value leaks or lacks prefix: %q", sealed)
	}
	again, _ := c.Seal(ctx, "Str0ngPass!")
	if again == sealed {
		t.Fatalf("two seals produced identical output; nonce reuse")
	}
	got, err := c.Open(ctx, sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "Str0ngPass!" {
		t.Fatalf("Open = %q", got)
	}
}

func TestLocal_Empty(t *testing.T) {
	c, _ := NewLocal(testKey())
	s, err := c.Seal(context.Background(), "")
	if err != nil || s != "" {
		t.Fatalf("Seal(\"\") = %q, %v", s, err)
	}
	p, err := c.Open(context.Background(), "")
	if err != nil || p != "" {
		t.Fatalf("Open(\"\") = %q, %v", p, err)
	}
}

func TestLocal_Tamper(t *testing.T) {
	c, _ := NewLocal(testKey())
	other, _ := NewLocal(bytes.Repeat([]byte{9}, 32))
	ctx := context.Background()

	sealed, _ := c.Seal(ctx, "secret")
	if _, err := other.Open(ctx, sealed); err == nil {
		t.Fatalf("opened with the wrong key")
	}
	if _, err := c.Open(ctx, "plaintext"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
	if _, err := c.Open(ctx, localPrefix+"AAAA"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("short body err = %v, want ErrMalformed", err)
	}
}

func TestNewLocal_KeySize(t *testing.T) {
	if _, err := NewLocal([]byte("short")); err == nil {
		t.Fatalf("expected key size error")
	}
	if _, err := NewLocalFromBase64("not base64!"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPassword_Classes(t *testing.T) {
	for i := 0; i < 50; i++ {
		p, err := Password(16)
		if err != nil {
			t.Fatalf("Password: %v", err)
		}
		if len(p) != 16 {
			t.Fatalf("len = %d", len(p))
		}
		var lo, up, dg, sy bool
		for _, r := range p {
			switch {
			case unicode.IsLower(r):
				lo = true
			case unicode.IsUpper(r):
				up = true
			case unicode.IsDigit(r):
				dg = true
			default:
				sy = true
			}
		}
		if !lo || !up || !dg || !sy {
			t.Fatalf("password %q misses a class", p)
		}
	}
	if p, _ := Password(4); len(p) != 12 {
		t.Fatalf("short request not raised to 12: %q", p)
	}
}

func TestToken(t *testing.T) {
	tok, err := Token(6)
	if err != nil || len(tok) != 6 {
		t.Fatalf("Token = %q, %v", tok, err)
	}
}
