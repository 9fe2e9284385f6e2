package credentials

import (
	"os"
	"testing"

	"github.com/spf13/afero"
)

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, ".env", []byte("QUORUM_TEST_KEY=from-file\nQUORUM_TEST_SET=from-file\n# comment\n"), 0o600)
	t.Setenv("QUORUM_TEST_SET", "from-env")
	t.Setenv("QUORUM_TEST_KEY", "")

	loaded, err := Load(fs, ".env", "missing.env")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 || loaded[0] != ".env" {
		t.Errorf("loaded = %v", loaded)
	}
	// Set-but-empty variables count as set.
	if got := Lookup("QUORUM_TEST_KEY"); got != "" {
		t.Errorf("QUORUM_TEST_KEY = %q, existing value should win", got)
	}
	if got := Lookup("QUORUM_TEST_SET"); got != "from-env" {
		t.Errorf("QUORUM_TEST_SET = %q, want from-env", got)
	}
}

func TestLoad_SetsUnsetVariables(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "keys.env", []byte("QUORUM_TEST_NEW=\"  secret  \"\n"), 0o600)
	// Register cleanup for a variable Load will create.
	t.Setenv("QUORUM_TEST_NEW", "")
	unsetForTest(t, "QUORUM_TEST_NEW")

	if _, err := Load(fs, "keys.env"); err != nil {
		t.Fatal(err)
	}
	if got := Lookup("QUORUM_TEST_NEW"); got != "secret" {
		t.Errorf("Lookup() = %q, want trimmed secret", got)
	}
}

func TestLoad_DefaultFileMissing(t *testing.T) {
	loaded, err := Load(afero.NewMemMapFs())
	if err != nil || len(loaded) != 0 {
		t.Errorf("Load() = %v, %v; a missing .env is not an error", loaded, err)
	}
}

func TestLookup_Empty(t *testing.T) {
	if Lookup("") != "" {
		t.Error("empty name should resolve to empty key")
	}
}

// unsetForTest removes key for the rest of the test. Call t.Setenv on the
// key first so the original value is restored afterwards.
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	if err := os.Unsetenv(key); err != nil {
		t.Fatal(err)
	}
}
