// Package credentials loads API keys from .env files and the environment.
package credentials

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

// DefaultFile is the dotenv file read from the working directory.
const DefaultFile = ".env"

// Load reads each dotenv file into the process environment. Files that
// do not exist are skipped; variables already set are never overridden.
// It returns the files that were loaded.
func Load(fs afero.Fs, files ...string) ([]string, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if len(files) == 0 {
		files = []string{DefaultFile}
	}

	var loaded []string
	for _, f := range files {
		exists, err := afero.Exists(fs, f)
		if err != nil {
			return loaded, err
		}
		if !exists {
			continue
		}
		file, err := fs.Open(f)
		if err != nil {
			return loaded, err
		}
		vars, err := godotenv.Parse(file)
		_ = file.Close()
		if err != nil {
			return loaded, err
		}
		for k, v := range vars {
			if _, set := os.LookupEnv(k); !set {
				_ = os.Setenv(k, v)
			}
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}

// Lookup resolves an API key environment variable. An empty name
// resolves to "".
func Lookup(envVar string) string {
	if envVar == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envVar))
}
