package guard

import (
	"context"
	"errors"
	"testing"

	"authledger/internal/identity/domain"
)

// stubVerifier accepts exactly one token.
type stubVerifier struct {
	valid string
	err   error
	calls int
}

func (s *stubVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if token != s.valid {
		return nil, domain.ErrUnauthenticated
	}
	return &domain.Identity{UserID: "u1", Username: "alice"}, nil
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"canonical", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"lowercase scheme", "bearer tok", "tok", true},
		{"uppercase scheme", "BEARER tok", "tok", true},
		{"surrounding whitespace", "  Bearer   tok  ", "tok", true},
		{"empty", "", "", false},
		{"scheme only", "Bearer", "", false},
		{"scheme and space", "Bearer ", "", false},
		{"token only", "tok", "", false},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", false},
		{"two tokens", "Bearer a b", "", false},
		{"scheme glued", "Bearertok", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.ok {
				if err != nil {
					t.Fatalf("BearerToken(%q): %v", tt.header, err)
				}
				if got != tt.want {
					t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
				}
				return
			}
			if !errors.Is(err, domain.ErrUnauthenticated) {
				t.Errorf("BearerToken(%q) err = %v, want ErrUnauthenticated", tt.header, err)
			}
		})
	}
}

func TestGuard_Authenticate(t *testing.T) {
	v := &stubVerifier{valid: "good"}
	g := New(v)

	id, token, err := g.Authenticate(context.Background(), "Bearer good")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.Username != "alice" || token != "good" {
		t.Errorf("Authenticate = (%+v, %q), want alice/good", id, token)
	}

	if _, _, err := g.Authenticate(context.Background(), "Bearer bad"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("bad token err = %v, want ErrUnauthenticated", err)
	}

	calls := v.calls
	if _, _, err := g.Authenticate(context.Background(), "Token good"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("malformed header err = %v, want ErrUnauthenticated", err)
	}
	if v.calls != calls {
		t.Error("verifier should not be called for a malformed header")
	}
}

func TestGuard_AuthenticateNormalizesVerifierErrors(t *testing.T) {
	g := New(&stubVerifier{err: errors.New("backend exploded")})
	_, _, err := g.Authenticate(context.Background(), "Bearer good")
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestProtect(t *testing.T) {
	g := New(&stubVerifier{valid: "good"})
	invoked := 0
	op := Protect[string, string](g, func(ctx context.Context, id *domain.Identity, req string) (string, error) {
		invoked++
		if ctxID, ok := IdentityFrom(ctx); !ok || ctxID != id {
			t.Error("identity should be in the operation's context")
		}
		if tok, _ := TokenFrom(ctx); tok != "good" {
			t.Errorf("token in context = %q, want %q", tok, "good")
		}
		return id.Username + ":" + req, nil
	})

	got, err := op(context.Background(), "Bearer good", "ping")
	if err != nil {
		t.Fatalf("protected op: %v", err)
	}
	if got != "alice:ping" {
		t.Errorf("result = %q, want %q", got, "alice:ping")
	}

	for _, header := range []string{"", "Bearer bad", "Bearer", "good"} {
		got, err := op(context.Background(), header, "ping")
		if !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("header %q err = %v, want ErrUnauthenticated", header, err)
		}
		if got != "" {
			t.Errorf("header %q result = %q, want zero value", header, got)
		}
	}
	if invoked != 1 {
		t.Errorf("operation invoked %d times, want 1", invoked)
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	ctx := context.Background()
	if _, ok := IdentityFrom(ctx); ok {
		t.Error("IdentityFrom on empty context should be false")
	}
	if _, ok := TokenFrom(ctx); ok {
		t.Error("TokenFrom on empty context should be false")
	}
	if UserID(ctx) != "" {
		t.Error("UserID on empty context should be empty")
	}
	ctx = WithIdentity(ctx, &domain.Identity{UserID: "u1"}, "tok")
	if UserID(ctx) != "u1" {
		t.Errorf("UserID = %q, want u1", UserID(ctx))
	}
}

func TestIdentitySlot_VisibleToOuterContext(t *testing.T) {
	outer := WithIdentitySlot(context.Background())
	if _, ok := IdentityFrom(outer); ok {
		t.Fatal("empty slot should not report an identity")
	}
	inner := WithIdentity(outer, &domain.Identity{UserID: "u1"}, "tok")
	if UserID(inner) != "u1" {
		t.Errorf("inner UserID = %q, want u1", UserID(inner))
	}
	if UserID(outer) != "u1" {
		t.Errorf("outer UserID = %q, want u1 after inner WithIdentity", UserID(outer))
	}
	if _, ok := TokenFrom(outer); ok {
		t.Error("token should not leak to the outer context")
	}
}
