package authrouter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrybrwn/xdg"

	"github.com/dsmil/auth-router-golang/internal/helpers"
)

const cacheFileName = "token_cache.json"

// DefaultCachePath places the cache file for a namespace under the platform
// application-data directory. The namespace is sanitized first so it is
// always a safe path component.
func DefaultCachePath(namespace string) string {
	return filepath.Join(xdg.Cache("auth-router"), helpers.SanitizeNamespace(namespace), cacheFileName)
}

// LoadCachedToken reads the cached bundle at path. A missing file is not an
// error, just "no cached token"; malformed content is a cache error.
func LoadCachedToken(path string) (*TokenBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read cache: %v", ErrCache, err)
	}

	var token TokenBundle
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: parse cache: %v", ErrCache, err)
	}

	return &token, nil
}

// SaveToken persists the bundle at path, overwriting any prior value and
// creating parent directories as needed.
func SaveToken(path string, token *TokenBundle) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: serialize cache: %v", ErrCache, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("%w: create cache dir: %v", ErrCache, err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: write cache: %v", ErrCache, err)
	}

	return nil
}
