package account

import (
	"fmt"
	"regexp"

	"github.com/matheus3301/mailcount/internal/config"
)

const DefaultName = "main"

var nameRegexp = regexp.MustCompile(`^[a-z0-9_.-]{1,64}$`)

// Resolve picks the active account: the flag, then config.toml's
// default_account, then "main".
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultAccount != "" {
		return cfg.DefaultAccount
	}
	return DefaultName
}

// ValidateName rejects account names that are unsafe as directory names.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid account name %q: must match %s", name, nameRegexp)
	}
	return nil
}
