package problem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/quorum/internal/errors"
)

func TestFileSource_Read(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/work/problem.txt", []byte("\n  Reverse a linked list.\n"), 0o644)
	_ = afero.WriteFile(fs, "/work/blank.txt", []byte(" \n\t"), 0o644)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"reads and trims", "/work/problem.txt", "Reverse a linked list.", false},
		{"missing file", "/work/nope.txt", "", true},
		{"blank file", "/work/blank.txt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewFileSource(fs, tt.path).Read(context.Background())
			if tt.wantErr {
				if !errors.Is(err, errors.ErrSourceUnavailable) {
					t.Errorf("error = %v, want ErrSourceUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if p.Text() != tt.want {
				t.Errorf("Text() = %q, want %q", p.Text(), tt.want)
			}
		})
	}
}

func TestFileSource_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFileSource(afero.NewMemMapFs(), "x").Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestStaticSource(t *testing.T) {
	p, err := StaticSource("  2+2? ").Read(context.Background())
	if err != nil || p.Text() != "2+2?" {
		t.Errorf("Read() = %q, %v", p.Text(), err)
	}
	if _, err := StaticSource("").Read(context.Background()); !errors.Is(err, errors.ErrSourceUnavailable) {
		t.Errorf("blank inline problem: error = %v", err)
	}
}

func TestFileSource_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := NewFileSource(nil, path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	next := func() Update {
		t.Helper()
		select {
		case u, ok := <-updates:
			if !ok {
				t.Fatal("updates closed early")
			}
			return u
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for update")
		}
		return Update{}
	}

	if u := next(); u.Err != nil || u.Problem.Text() != "first" {
		t.Fatalf("initial update = %+v", u)
	}

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("noise"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}
	if u := next(); u.Err != nil || u.Problem.Text() != "second" {
		t.Fatalf("update after write = %+v", u)
	}

	cancel()
	select {
	case _, ok := <-updates:
		if ok {
			// A late update may race with cancellation; the channel must
			// still close.
			for range updates {
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("updates not closed after cancel")
	}
}
