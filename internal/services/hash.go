package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ContentHasher produces a deterministic content digest for a file on disk.
type ContentHasher interface {
	Hash(ctx context.Context, path string) (string, error)
}

// SHA256Hasher streams a file through sha256 and returns the digest as a
// 64-character hex string.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
