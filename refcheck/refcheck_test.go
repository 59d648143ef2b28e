package refcheck

import (
	"strings"
	"testing"
)

func TestCheckEmpty(t *testing.T) {
	refs, err := Check(nil)
	if err != nil {
		t.Fatalf("Check(nil) failed: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("Check(nil) = %v, want empty", refs)
	}
}

func TestCheckStandardLibrary(t *testing.T) {
	refs, err := Check([]string{"strings", "net/http"})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2", len(refs))
	}
	if refs[0].Path != "strings" || refs[0].Name != "strings" {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[1].Path != "net/http" || refs[1].Name != "http" {
		t.Errorf("refs[1] = %+v", refs[1])
	}
}

func TestCheckUnresolved(t *testing.T) {
	_, err := Check([]string{"example.invalid/no/such/package"})
	if err == nil {
		t.Fatal("expected error for unresolvable import path")
	}
	if !strings.Contains(err.Error(), "unresolved references") {
		t.Errorf("error = %q", err)
	}
}
