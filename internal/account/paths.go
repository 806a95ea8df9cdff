package account

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.mailcount, or $MAILCOUNT_HOME when set.
func BaseDir() string {
	if dir := os.Getenv("MAILCOUNT_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mailcount")
}

// Dir returns the account-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "accounts", name)
}

// SocketPath returns the daemon's Unix socket for an account.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "daemon.sock")
}

// MailDBPath returns the message cache path.
func MailDBPath(name string) string {
	return filepath.Join(Dir(name), "mail.db")
}

// CounterDBPath returns the per-account counter database path.
func CounterDBPath(name string) string {
	return filepath.Join(Dir(name), "counters.db")
}

// LogDir returns the log directory for an account.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "mailcountd.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the account directory tree.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
