package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"xstar_farm/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTokenUpsertOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetToken(ctx, "123"); err != nil || ok {
		t.Fatalf("GetToken on empty store = ok=%v err=%v, want miss", ok, err)
	}

	if err := s.UpsertToken(ctx, "123", "tok-a"); err != nil {
		t.Fatalf("UpsertToken: %v", err)
	}
	if err := s.UpsertToken(ctx, "123", "tok-b"); err != nil {
		t.Fatalf("UpsertToken again: %v", err)
	}

	got, ok, err := s.GetToken(ctx, "123")
	if err != nil || !ok {
		t.Fatalf("GetToken = ok=%v err=%v", ok, err)
	}
	if got != "tok-b" {
		t.Errorf("token = %q, want the refreshed tok-b", got)
	}
}

func TestTokensAreKeyedBySession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertToken(ctx, "a", "tok-a"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertToken(ctx, "b", "tok-b"); err != nil {
		t.Fatal(err)
	}
	got, _, err := s.GetToken(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got != "tok-a" {
		t.Errorf("token for a = %q after writing b", got)
	}
}

func TestFingerprintRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fp := model.Fingerprint{UserAgent: "Mozilla/5.0 (iPhone)", Platform: "ios", DeviceID: "dev-1"}
	if err := s.UpsertFingerprint(ctx, "123", fp); err != nil {
		t.Fatalf("UpsertFingerprint: %v", err)
	}
	got, ok, err := s.GetFingerprint(ctx, "123")
	if err != nil || !ok {
		t.Fatalf("GetFingerprint = ok=%v err=%v", ok, err)
	}
	if got != fp {
		t.Errorf("fingerprint = %+v, want %+v", got, fp)
	}
}

func TestConcurrentUpsertsKeepOwnKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(n int) {
			name := string(rune('a' + n%5))
			done <- s.UpsertToken(ctx, name, "tok-"+name)
		}(i)
	}
	for i := 0; i < 20; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent upsert: %v", err)
		}
	}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		got, ok, err := s.GetToken(ctx, name)
		if err != nil || !ok || got != "tok-"+name {
			t.Errorf("token %s = %q ok=%v err=%v", name, got, ok, err)
		}
	}
}
