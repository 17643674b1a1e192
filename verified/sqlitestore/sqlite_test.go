package sqlitestore

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return s
}

func TestVerifiedIDs_Empty(t *testing.T) {
	s := openTestStore(t)

	ids, err := s.VerifiedIDs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", ids)
	}
}

func TestVerifiedIDs_AddRemove(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Add(ctx, "0x0c", "0x0a", "0x0b", "0x0a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids, err := s.VerifiedIDs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"0x0c", "0x0a", "0x0b"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("expected %v, got %v", want, ids)
	}

	if err := s.Remove(ctx, "0x0a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids, err = s.VerifiedIDs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"0x0c", "0x0b"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("expected %v, got %v", want, ids)
	}
}

func TestVerifiedIDs_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := s.Add(context.Background(), "0x01"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s2.Close()

	ids, err := s2.VerifiedIDs(context.Background())
	if err != nil || len(ids) != 1 || ids[0] != "0x01" {
		t.Fatalf("ids=%v err=%v", ids, err)
	}
}
