package oauth

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryGrantsCreate(t *testing.T) {
	store := NewMemoryGrants()

	grant, err := store.Create("demo", "owner-1", "https://app.example/cb", ParseScope("read"), 10*time.Minute)
	if err != nil {
		t.Fatalf("create grant: %v", err)
	}
	if len(grant.Code) < 32 {
		t.Errorf("code %q is too short to carry 128 bits of entropy", grant.Code)
	}
	if grant.Consumed {
		t.Error("fresh grant must not be consumed")
	}
	if !grant.ExpiresAt.After(grant.IssuedAt) {
		t.Error("expiry must be after issuance")
	}

	other, err := store.Create("demo", "owner-1", "https://app.example/cb", ParseScope("read"), 10*time.Minute)
	if err != nil {
		t.Fatalf("create second grant: %v", err)
	}
	if other.Code == grant.Code {
		t.Error("codes must be unique")
	}
}

func TestMemoryGrantsConsume(t *testing.T) {
	newGrant := func(t *testing.T, store *MemoryGrants) Grant {
		t.Helper()
		grant, err := store.Create("demo", "owner-1", "https://app.example/cb", ParseScope("read"), 10*time.Minute)
		if err != nil {
			t.Fatalf("create grant: %v", err)
		}
		return grant
	}

	t.Run("success", func(t *testing.T) {
		store := NewMemoryGrants()
		grant := newGrant(t, store)
		consumed, err := store.Consume(grant.Code, "demo", "https://app.example/cb")
		if err != nil {
			t.Fatalf("consume: %v", err)
		}
		if consumed.Scope.String() != "read" || consumed.OwnerID != "owner-1" {
			t.Errorf("consumed grant = %+v", consumed)
		}
	})

	t.Run("second redemption fails", func(t *testing.T) {
		store := NewMemoryGrants()
		grant := newGrant(t, store)
		if _, err := store.Consume(grant.Code, "demo", "https://app.example/cb"); err != nil {
			t.Fatalf("first consume: %v", err)
		}
		if _, err := store.Consume(grant.Code, "demo", "https://app.example/cb"); !errors.Is(err, ErrInvalidGrant) {
			t.Errorf("second consume error = %v, want ErrInvalidGrant", err)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		store := NewMemoryGrants()
		if _, err := store.Consume("nope", "demo", "https://app.example/cb"); !errors.Is(err, ErrInvalidGrant) {
			t.Errorf("error = %v, want ErrInvalidGrant", err)
		}
	})

	t.Run("client mismatch", func(t *testing.T) {
		store := NewMemoryGrants()
		grant := newGrant(t, store)
		if _, err := store.Consume(grant.Code, "other", "https://app.example/cb"); !errors.Is(err, ErrInvalidGrant) {
			t.Errorf("error = %v, want ErrInvalidGrant", err)
		}
	})

	t.Run("redirect mismatch", func(t *testing.T) {
		store := NewMemoryGrants()
		grant := newGrant(t, store)
		if _, err := store.Consume(grant.Code, "demo", "https://evil.example/cb"); !errors.Is(err, ErrInvalidGrant) {
			t.Errorf("error = %v, want ErrInvalidGrant", err)
		}
	})

	t.Run("mismatch does not burn the grant", func(t *testing.T) {
		store := NewMemoryGrants()
		grant := newGrant(t, store)
		if _, err := store.Consume(grant.Code, "other", "https://app.example/cb"); !errors.Is(err, ErrInvalidGrant) {
			t.Fatalf("mismatched consume error = %v", err)
		}
		if _, err := store.Consume(grant.Code, "demo", "https://app.example/cb"); err != nil {
			t.Errorf("bound consume after mismatch: %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		store := NewMemoryGrants()
		grant := newGrant(t, store)
		store.clock = func() time.Time { return time.Now().Add(11 * time.Minute) }
		if _, err := store.Consume(grant.Code, "demo", "https://app.example/cb"); !errors.Is(err, ErrInvalidGrant) {
			t.Errorf("error = %v, want ErrInvalidGrant", err)
		}
	})
}

// TestMemoryGrantsConcurrentConsume checks the at-most-once invariant under
// racing redemptions: exactly one attempt may win.
func TestMemoryGrantsConcurrentConsume(t *testing.T) {
	store := NewMemoryGrants()
	grant, err := store.Create("demo", "owner-1", "https://app.example/cb", ParseScope("read"), 10*time.Minute)
	if err != nil {
		t.Fatalf("create grant: %v", err)
	}

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := store.Consume(grant.Code, "demo", "https://app.example/cb")
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInvalidGrant):
			failures++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if failures != attempts-1 {
		t.Errorf("failures = %d, want %d", failures, attempts-1)
	}
}

func TestMemoryGrantsSweep(t *testing.T) {
	store := NewMemoryGrants()
	grant, err := store.Create("demo", "owner-1", "https://app.example/cb", ParseScope("read"), 10*time.Minute)
	if err != nil {
		t.Fatalf("create grant: %v", err)
	}

	store.Sweep(time.Now())
	if _, err := store.Consume(grant.Code, "demo", "https://app.example/cb"); err != nil {
		t.Fatalf("grant swept before expiry: %v", err)
	}

	late, err := store.Create("demo", "owner-1", "https://app.example/cb", ParseScope("read"), 10*time.Minute)
	if err != nil {
		t.Fatalf("create grant: %v", err)
	}
	store.Sweep(time.Now().Add(11 * time.Minute))
	if _, err := store.Consume(late.Code, "demo", "https://app.example/cb"); !errors.Is(err, ErrInvalidGrant) {
		t.Errorf("error = %v, want ErrInvalidGrant after sweep", err)
	}
}
