package registry_test

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/uniusa/verify-bot/internal/registry"
)

func newRegistry(ttl time.Duration) *registry.Registry {
	return registry.New(ttl, slog.New(slog.DiscardHandler))
}

func TestIssue_OverwritesExistingCode(t *testing.T) {
	r := newRegistry(0)

	r.Issue("user-1", "111111")
	r.Issue("user-1", "222222")

	code, ok := r.Get("user-1")
	if !ok {
		t.Fatal("expected a pending code")
	}
	if code != "222222" {
		t.Errorf("code = %q, want the overwriting code", code)
	}
	if r.Len() != 1 {
		t.Errorf("len = %d, want exactly one entry per user", r.Len())
	}
}

func TestRedeem_Match_RemovesEntry(t *testing.T) {
	r := newRegistry(0)
	r.Issue("user-1", "042991")

	if got := r.Redeem("user-1", "042991"); got != registry.RedeemMatched {
		t.Fatalf("redeem = %v, want RedeemMatched", got)
	}
	if r.Has("user-1") {
		t.Error("entry should be removed after a match")
	}
}

func TestRedeem_Mismatch_RetainsEntry(t *testing.T) {
	r := newRegistry(0)
	r.Issue("user-1", "042991")

	if got := r.Redeem("user-1", "999999"); got != registry.RedeemMismatch {
		t.Fatalf("redeem = %v, want RedeemMismatch", got)
	}
	code, ok := r.Get("user-1")
	if !ok || code != "042991" {
		t.Errorf("entry should be retained for retry, got (%q, %v)", code, ok)
	}
}

func TestRedeem_NoPendingCode(t *testing.T) {
	r := newRegistry(0)

	if got := r.Redeem("user-1", "042991"); got != registry.RedeemNoPending {
		t.Errorf("redeem = %v, want RedeemNoPending", got)
	}
}

func TestConsume_RemovesEntry(t *testing.T) {
	r := newRegistry(0)
	r.Issue("user-1", "042991")

	r.Consume("user-1")

	if r.Has("user-1") {
		t.Error("entry should be removed after consume")
	}
}

func TestHas_ExpiredEntryTreatedAsAbsent(t *testing.T) {
	r := newRegistry(10 * time.Millisecond)
	r.Issue("user-1", "042991")

	time.Sleep(25 * time.Millisecond)

	if r.Has("user-1") {
		t.Error("expired entry should be treated as absent")
	}
	if got := r.Redeem("user-1", "042991"); got != registry.RedeemNoPending {
		t.Errorf("redeem of expired entry = %v, want RedeemNoPending", got)
	}
}

func TestZeroTTL_EntriesNeverExpire(t *testing.T) {
	r := newRegistry(0)
	r.Issue("user-1", "042991")

	time.Sleep(25 * time.Millisecond)

	if !r.Has("user-1") {
		t.Error("entries must not expire when TTL is zero")
	}
}

func TestConcurrentIssueRedeem_NoLostUpdates(t *testing.T) {
	r := newRegistry(0)

	const users = 50
	var wg sync.WaitGroup
	results := make([]registry.RedeemResult, users)

	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i)
			code := fmt.Sprintf("%06d", i)
			r.Issue(userID, code)
			results[i] = r.Redeem(userID, code)
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if res != registry.RedeemMatched {
			t.Errorf("user-%d: redeem = %v, want RedeemMatched", i, res)
		}
	}
	if r.Len() != 0 {
		t.Errorf("len = %d, want all entries consumed", r.Len())
	}
}

func TestConcurrentRedeem_AtMostOneMatch(t *testing.T) {
	r := newRegistry(0)
	r.Issue("user-1", "042991")

	const attempts = 20
	var wg sync.WaitGroup
	results := make([]registry.RedeemResult, attempts)

	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Redeem("user-1", "042991")
		}(i)
	}
	wg.Wait()

	var matched int
	for _, res := range results {
		if res == registry.RedeemMatched {
			matched++
		}
	}
	if matched != 1 {
		t.Errorf("matched %d times, want exactly once", matched)
	}
}
