package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	creds, err := NewStaticCredentials("johndoe", "secretpassword")
	if err != nil {
		t.Fatalf("NewStaticCredentials: %v", err)
	}
	return NewService("test-signing-key", 30*time.Minute, creds)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	svc := newTestService(t)

	tok, err := svc.Issue(context.Background(), "johndoe", "secretpassword")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok == "" {
		t.Fatal("Issue returned empty token")
	}

	sub, err := svc.Verify("Bearer " + tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sub != "johndoe" {
		t.Fatalf("subject = %q, want johndoe", sub)
	}
}

func TestIssue_WrongPassword(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Issue(context.Background(), "johndoe", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestIssue_UnknownUser(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Issue(context.Background(), "mallory", "secretpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	svc := newTestService(t)

	tok, err := svc.Issue(context.Background(), "johndoe", "secretpassword")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Advance the clock past the TTL.
	svc.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	if _, err := svc.Verify("Bearer " + tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	svc := newTestService(t)
	other := newTestService(t)
	other.secret = []byte("a-different-key")

	tok, err := svc.Issue(context.Background(), "johndoe", "secretpassword")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := other.Verify("Bearer " + tok); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerify_RejectsNonHMACAlg(t *testing.T) {
	svc := newTestService(t)

	// alg=none tokens must never validate.
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "johndoe",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.Verify("Bearer " + unsigned); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerify_MissingSubject(t *testing.T) {
	svc := newTestService(t)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(svc.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.Verify("Bearer " + raw); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerify_HeaderShapes(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		name   string
		header string
		want   error
	}{
		{"empty", "", ErrMissingToken},
		{"whitespace", "   ", ErrMissingToken},
		{"no scheme", "abc.def.ghi", ErrMalformedHeader},
		{"wrong scheme", "Basic abc", ErrMalformedHeader},
		{"lowercase bearer", "bearer abc.def.ghi", ErrMalformedHeader},
		{"bearer only", "Bearer ", ErrMalformedHeader},
		{"garbage token", "Bearer not-a-jwt", ErrInvalidSignature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Verify(tc.header); !errors.Is(err, tc.want) {
				t.Fatalf("Verify(%q) err = %v, want %v", tc.header, err, tc.want)
			}
		})
	}
}

func TestStaticCredentials_EmptyRejected(t *testing.T) {
	creds, err := NewStaticCredentials("johndoe", "secretpassword")
	if err != nil {
		t.Fatalf("NewStaticCredentials: %v", err)
	}
	ok, err := creds.Authenticate(context.Background(), "johndoe", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if ok {
		t.Fatal("empty password authenticated")
	}
}
