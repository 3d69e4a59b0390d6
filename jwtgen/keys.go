package jwtgen

import (
	"bytes"
	"fmt"
	"os"
)

// ReadSecretFile loads an HMAC secret from a file. A single trailing newline
// (as left by most editors and `echo`) is stripped; all other bytes are kept.
func ReadSecretFile(path string) ([]byte, error) {
	secret, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}

	secret = bytes.TrimSuffix(secret, []byte("\n"))
	secret = bytes.TrimSuffix(secret, []byte("\r"))
	if len(secret) == 0 {
		return nil, fmt.Errorf("secret file %s is empty", path)
	}

	return secret, nil
}
