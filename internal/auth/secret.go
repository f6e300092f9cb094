package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// minSecretLen matches the JWT_SECRET floor enforced by config validation.
const minSecretLen = 16

// LoadOrCreateSecret returns the signing secret stored at path, generating
// and persisting a random one on first use. The file is readable by the
// owner only.
func LoadOrCreateSecret(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		secret := strings.TrimSpace(string(b))
		if len(secret) >= minSecretLen {
			return secret, nil
		}
		return "", fmt.Errorf("secret file %s holds fewer than %d characters", path, minSecretLen)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read secret file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create secret dir: %w", err)
	}
	secret := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if err := os.WriteFile(path, []byte(secret+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write secret file: %w", err)
	}
	return secret, nil
}
