package upload

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// randomNameBytes is the amount of randomness in a generated storage name.
// 128 bits plus the millisecond timestamp makes concurrent collisions
// implausible without any cross-request locking.
const randomNameBytes = 16

// GenerateStorageName produces the on-disk filename for an accepted upload:
// a millisecond timestamp, an underscore, 32 hex characters of
// cryptographic randomness, and the lower-cased extension of the original
// name. Nothing else from the caller-supplied name survives, so a hostile
// original name can never influence the storage location.
func GenerateStorageName(originalName string) (string, error) {
	buf := make([]byte, randomNameBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random filename: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), hex.EncodeToString(buf), ext), nil
}
