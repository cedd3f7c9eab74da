package auth

import (
	"context"
	"testing"
	"time"
)

// countingAuthenticator tracks Validate and Logout calls.
type countingAuthenticator struct {
	identity      Identity
	validateErr   error
	validateCalls int
	logoutCalls   int
}

func (a *countingAuthenticator) Login(ctx context.Context, identifier, secret string) (string, error) {
	return identifier, nil
}

func (a *countingAuthenticator) Register(ctx context.Context, name, email, secret string) (Identity, error) {
	return a.identity, nil
}

func (a *countingAuthenticator) Validate(ctx context.Context, token string) (Identity, error) {
	a.validateCalls++
	if a.validateErr != nil {
		return Identity{}, a.validateErr
	}
	return a.identity, nil
}

func (a *countingAuthenticator) Logout(ctx context.Context, token string) error {
	a.logoutCalls++
	return nil
}

func TestCachedValidate_HitsInnerOnce(t *testing.T) {
	inner := &countingAuthenticator{identity: Identity{ID: "U1", Name: "Alice"}}
	c, err := NewCachedAuthenticator(inner, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	ctx := context.Background()
	first, err := c.Validate(ctx, "token-1")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	c.Wait()

	second, err := c.Validate(ctx, "token-1")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if first != second {
		t.Errorf("Cached identity differs: %+v vs %+v", first, second)
	}
	if inner.validateCalls != 1 {
		t.Errorf("Expected 1 inner Validate call, got %d", inner.validateCalls)
	}
}

func TestCachedValidate_FailuresAreNotCached(t *testing.T) {
	inner := &countingAuthenticator{validateErr: ErrInvalidSession}
	c, err := NewCachedAuthenticator(inner, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.Validate(ctx, "bad-token"); err == nil {
			t.Fatal("Expected an error")
		}
		c.Wait()
	}
	if inner.validateCalls != 2 {
		t.Errorf("Failed validations must not be cached, got %d inner calls", inner.validateCalls)
	}
}

func TestCachedLogout_DropsCachedSession(t *testing.T) {
	inner := &countingAuthenticator{identity: Identity{ID: "U1"}}
	c, err := NewCachedAuthenticator(inner, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	ctx := context.Background()
	if _, err := c.Validate(ctx, "token-1"); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	c.Wait()

	if err := c.Logout(ctx, "token-1"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if inner.logoutCalls != 1 {
		t.Errorf("Logout must pass through, got %d inner calls", inner.logoutCalls)
	}

	// The next Validate must consult the inner authenticator again.
	if _, err := c.Validate(ctx, "token-1"); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if inner.validateCalls != 2 {
		t.Errorf("Expected revalidation after logout, got %d inner calls", inner.validateCalls)
	}
}
