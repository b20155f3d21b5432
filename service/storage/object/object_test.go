package object

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskStoreSaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir, "/uploads/")
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	url, err := s.Save(context.Background(), "photo.PNG", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url = %q", url)
	}

	name := filepath.Base(url)
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("stored file unreadable: %v", err)
	}
	if string(b) != "data" {
		t.Fatalf("stored content = %q", b)
	}

	if err := s.Remove(context.Background(), url); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
		t.Fatal("file still present after Remove")
	}
	// idempotent
	if err := s.Remove(context.Background(), url); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestDiskStoreUniqueNames(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	u1, _ := s.Save(context.Background(), "a.jpg", strings.NewReader("1"))
	u2, _ := s.Save(context.Background(), "a.jpg", strings.NewReader("2"))
	if u1 == u2 {
		t.Fatal("same filename produced the same url twice")
	}
}
