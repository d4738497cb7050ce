package excludes

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewNormalizes(t *testing.T) {
	s := New(" .TMP ", "log", "", ".Bak")

	want := []string{".bak", ".log", ".tmp"}
	got := s.Extensions()
	if len(got) != len(want) {
		t.Fatalf("expected %d extensions, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Extensions()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExcluded(t *testing.T) {
	tests := []struct {
		name string
		set  Set
		path string
		want bool
	}{
		{
			name: "member extension",
			set:  New(".tmp"),
			path: "notes/scratch.tmp",
			want: true,
		},
		{
			name: "case insensitive",
			set:  New(".tmp"),
			path: "SCRATCH.TMP",
			want: true,
		},
		{
			name: "non-member extension",
			set:  New(".tmp"),
			path: "report.txt",
			want: false,
		},
		{
			name: "no extension",
			set:  New(".tmp"),
			path: "Makefile",
			want: false,
		},
		{
			name: "empty set never excludes",
			set:  Set{},
			path: "scratch.tmp",
			want: false,
		},
		{
			name: "nil set never excludes",
			set:  nil,
			path: "scratch.tmp",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.Excluded(tt.path); got != tt.want {
				t.Errorf("Excluded(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	s, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != 0 {
		t.Errorf("expected empty set, got %v", s.Extensions())
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excludes.txt")

	if err := New(".tmp", ".log").SaveFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !s.Excluded("a.tmp") || !s.Excluded("b.log") {
		t.Errorf("expected .tmp and .log to be excluded, set = %v", s.Extensions())
	}
	if s.Excluded("c.txt") {
		t.Error("expected .txt not to be excluded")
	}
}

func TestSaveFileEmptyRemoves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excludes.txt")
	if err := os.WriteFile(path, []byte(".tmp\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := (Set{}).SaveFile(path); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected file removed, stat err = %v", err)
	}
}

func TestSuggestionsWellFormed(t *testing.T) {
	if len(Suggestions) == 0 {
		t.Fatal("Suggestions should not be empty")
	}
	for _, sg := range Suggestions {
		if sg.Name == "" {
			t.Error("suggestion with empty name")
		}
		if len(sg.Extensions) == 0 {
			t.Errorf("suggestion %q has no extensions", sg.Name)
		}
		for _, ext := range sg.Extensions {
			if ext == "" || ext[0] != '.' {
				t.Errorf("suggestion %q has malformed extension %q", sg.Name, ext)
			}
		}
	}
}
