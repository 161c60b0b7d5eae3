package helpers

import (
	"crypto/rand"
	"encoding/hex"
	"os"
)

func GenerateToken(len int) (string, error) {
	b := make([]byte, len)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// SanitizeNamespace reduces a namespace to a safe path component: anything
// outside [A-Za-z0-9_-] becomes "_", and an empty input maps to "_".
func SanitizeNamespace(s string) string {
	out := make([]rune, 0, len(s))
	for _, ch := range s {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			out = append(out, ch)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}

// Hostname returns the machine hostname, or "unknown-host" when it cannot
// be determined.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown-host"
	}
	return h
}
