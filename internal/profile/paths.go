// Package profile lays out per-profile state under ~/.botchat.
package profile

import (
	"os"
	"path/filepath"
)

// BaseDirEnv overrides the base directory, mainly for tests.
const BaseDirEnv = "BOTCHAT_HOME"

// BaseDir returns ~/.botchat, or $BOTCHAT_HOME when set.
func BaseDir() string {
	if dir := os.Getenv(BaseDirEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".botchat")
}

// Dir returns the profile directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// SocketPath returns the daemon's Unix socket.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "daemon.sock")
}

// JournalPath returns the delivery journal database.
func JournalPath(name string) string {
	return filepath.Join(Dir(name), "journal.db")
}

// LogDir returns the log directory.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "botchatd.log")
}

// ConfigPath returns the global config file.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
