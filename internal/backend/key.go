package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// Key is the identity of a connection target within one backend kind.
type Key string

// KeyPolicy controls which parameters participate in a Key.
//
// By default the password is left out, so two configs that differ only in
// password share one connection. IncludePassword adds a fingerprint of the
// password instead.
type KeyPolicy struct {
	IncludePassword bool
}

// ResolveKey derives the connection identity for cfg. It never fails: inputs
// that differ produce different keys, identical resolved inputs the same key.
func ResolveKey(cfg Config, policy KeyPolicy) Key {
	cfg = cfg.WithDefaults()

	if !cfg.Kind.Networked() {
		return Key(NormalizePath(cfg.Path))
	}

	var parts []string
	if cfg.Kind == MongoDB && cfg.ConnectionString != "" {
		host, user := stripUserInfo(cfg.ConnectionString, cfg.User)
		parts = []string{host, cfg.Database, user}
	} else {
		parts = []string{cfg.Host, strconv.Itoa(cfg.Port), cfg.Database, cfg.User}
	}
	if policy.IncludePassword && cfg.Password != "" {
		parts = append(parts, fingerprint(cfg.Password))
	}
	return Key(strings.Join(parts, ":"))
}

// NormalizePath trims p and makes it absolute. SQLite keys and the file the
// driver opens both come from it.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// stripUserInfo removes credentials from a connection string and returns the
// remainder plus the username it carried (or fallback when it had none).
func stripUserInfo(raw, fallback string) (string, string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "unparsed-" + fingerprint(raw), fallback
	}
	user := fallback
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = nil
	return u.String(), user
}

func fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:6])
}
