package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadFile reads, parses and validates a configuration file. A missing
// file yields an error matching fs.ErrNotExist.
func LoadFile(filePath string, environ []string) (*ConnectorConfig, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return Validate(doc, environ)
}

// EnvironWithFile returns environ extended with the variables defined in a
// dotenv file. Variables already present in environ take precedence over the
// file. A missing file is not an error.
func EnvironWithFile(filePath string, environ []string) ([]string, error) {
	if filePath == "" {
		return environ, nil
	}

	values, err := godotenv.Read(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return environ, nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", filePath, err)
	}

	// Later entries win during resolution, so the file goes first.
	merged := make([]string, 0, len(values)+len(environ))
	for key, value := range values {
		merged = append(merged, key+"="+value)
	}
	return append(merged, environ...), nil
}
