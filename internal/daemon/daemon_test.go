package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestLockFileExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	first := NewLockFile(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if !first.IsLocked() {
		t.Error("first holder should report locked")
	}

	second := NewLockFile(path)
	if err := second.Acquire(); err == nil {
		second.Release()
		t.Fatal("second acquire should fail while the lock is held")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	if err := second.Acquire(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	second.Release()
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pid")
	p := NewPIDFile(path)

	if err := p.Write(); err != nil {
		t.Fatalf("write: %v", err)
	}

	pid, err := p.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
	if !p.IsProcessAlive() {
		t.Error("own process should be alive")
	}

	if err := p.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if pid, _ := p.Read(); pid != 0 {
		t.Errorf("pid after remove = %d, want 0", pid)
	}
}

func TestPIDFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pid")
	if err := os.WriteFile(path, []byte("not-a-pid"), 0600); err != nil {
		t.Fatal(err)
	}

	p := NewPIDFile(path)
	if _, err := p.Read(); err == nil {
		t.Error("expected an error for a non-numeric pid file")
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(-4)), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Read(); err == nil {
		t.Error("expected an error for a negative pid")
	}
}

func TestValidateCacheKey(t *testing.T) {
	a := validateCacheKey("cat1", "fp1", []byte(`{"bedrooms":3}`))
	b := validateCacheKey("cat1", "fp1", []byte(`{"bedrooms":3}`))
	if a != b {
		t.Error("identical inputs must produce identical keys")
	}

	if validateCacheKey("cat2", "fp1", []byte(`{"bedrooms":3}`)) == a {
		t.Error("a different catalog must change the key")
	}
	if validateCacheKey("cat1", "fp2", []byte(`{"bedrooms":3}`)) == a {
		t.Error("a different layout must change the key")
	}
	if validateCacheKey("cat1", "fp1", []byte(`{"bedrooms":4}`)) == a {
		t.Error("different requirements must change the key")
	}
}
