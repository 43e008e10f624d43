package maincomposer

import "testing"

func TestComposeHTTPSOrigin(t *testing.T) {
	m, err := Compose("example.com/mod", "example.com/mod", "https://github.com/org/repo.git", "", "v1.0.0")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if m.RealPath != "github.com/org/repo" {
		t.Errorf("RealPath = %q, want github.com/org/repo", m.RealPath)
	}
}

func TestComposeSCPLikeOrigin(t *testing.T) {
	m, err := Compose("example.com/mod", "example.com/mod", "git@github.com:org/repo.git", "", "v1.0.0")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if m.RealPath != "github.com/org/repo" {
		t.Errorf("RealPath = %q, want github.com/org/repo", m.RealPath)
	}
}

func TestComposeWithSubpath(t *testing.T) {
	m, err := Compose("example.com/mod/sub", "example.com/mod/sub", "https://github.com/org/repo.git", "sub", "v1.0.0")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if m.RealPath != "github.com/org/repo/sub" {
		t.Errorf("RealPath = %q, want github.com/org/repo/sub", m.RealPath)
	}
}

func TestComposePanicsOnEmptyVersion(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for an empty version")
		}
	}()
	_, _ = Compose("example.com/mod", "example.com/mod", "https://github.com/org/repo.git", "", "")
}
