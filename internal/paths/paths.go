// Package paths defines the on-disk layout of the .sqptrack state
// directory. Every file sqptrack owns lives under one root so a
// project can be inspected, backed up, or deleted as a unit.
package paths

import (
	"os"
	"path/filepath"
)

// StateDirName is the per-project state directory
const StateDirName = ".sqptrack"

// StateDir returns the state directory under the given project root
func StateDir(root string) string {
	return filepath.Join(root, StateDirName)
}

// ConfigPath is the tracker configuration file
func ConfigPath(root string) string {
	return filepath.Join(StateDir(root), "config.json")
}

// DBPath is the SQLite watchlist store
func DBPath(root string) string {
	return filepath.Join(StateDir(root), "tracker.db")
}

// ProductsPath is the declared product registry
func ProductsPath(root string) string {
	return filepath.Join(StateDir(root), "PRODUCTS.toml")
}

// SpapiConfigPath is the Selling Partner API subsystem config
func SpapiConfigPath(root string) string {
	return filepath.Join(StateDir(root), "spapi.toml")
}

// CredentialsPath is the sealed LWA credentials file
func CredentialsPath(root string) string {
	return filepath.Join(StateDir(root), "credentials.json")
}

// CredentialsKeyPath is the local sealing key for credentials
func CredentialsKeyPath(root string) string {
	return filepath.Join(StateDir(root), "credentials.key")
}

// EnsureStateDir creates the state directory if it does not exist
func EnsureStateDir(root string) error {
	return os.MkdirAll(StateDir(root), 0o755)
}

// Initialized reports whether the project root has a state directory
func Initialized(root string) bool {
	info, err := os.Stat(StateDir(root))
	return err == nil && info.IsDir()
}
