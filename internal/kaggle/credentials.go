package kaggle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// CredentialsFile is the file name the Kaggle tooling stores API tokens in.
const CredentialsFile = "kaggle.json"

// Credentials is a Kaggle API token.
type Credentials struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

// Empty reports whether either half of the token is missing.
func (c Credentials) Empty() bool {
	return c.Username == "" || c.Key == ""
}

// LoadCredentials resolves credentials the way the Kaggle CLI does: explicit
// username and key win; otherwise kaggle.json is read from configDir, or from
// ~/.kaggle when configDir is empty. Returns ErrNoCredentials if neither source
// yields a complete token.
func LoadCredentials(username, key, configDir string) (Credentials, error) {
	if username != "" && key != "" {
		return Credentials{Username: username, Key: key}, nil
	}

	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Credentials{}, fmt.Errorf("%w: no KAGGLE_USERNAME/KAGGLE_KEY and no home directory: %v", ErrNoCredentials, err)
		}
		configDir = filepath.Join(home, ".kaggle")
	}

	path := filepath.Join(configDir, CredentialsFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, fmt.Errorf("%w: set KAGGLE_USERNAME and KAGGLE_KEY or create %s", ErrNoCredentials, path)
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if creds.Empty() {
		return Credentials{}, fmt.Errorf("%w: %s is missing username or key", ErrNoCredentials, path)
	}
	return creds, nil
}
