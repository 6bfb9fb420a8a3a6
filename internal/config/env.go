package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set win over the file.
//
// A missing file is not an error unless required is true (the path was given
// explicitly). It reports whether a file was loaded.
func LoadEnvFile(path string, required bool) (bool, error) {
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return false, nil
		}
		return false, &ConfigurationError{Reason: fmt.Sprintf("env file %s: %v", path, err)}
	}
	if err := godotenv.Load(path); err != nil {
		return false, &ConfigurationError{Reason: fmt.Sprintf("env file %s: %v", path, err)}
	}
	return true, nil
}
