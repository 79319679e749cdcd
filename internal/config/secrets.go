package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Credentials is the [warehouse] table of the secrets file. The file is
// read once, at connection time.
type Credentials struct {
	User      string `toml:"user"`
	Password  string `toml:"password"`
	Account   string `toml:"account"`
	Warehouse string `toml:"warehouse"`
	Database  string `toml:"database"`
	Schema    string `toml:"schema"`
	Role      string `toml:"role"`
}

type secretsFile struct {
	Warehouse Credentials `toml:"warehouse"`
}

func LoadSecrets(path string) (Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read secrets file: %w", err)
	}
	var parsed secretsFile
	if err := toml.Unmarshal(raw, &parsed); err != nil {
		return Credentials{}, fmt.Errorf("parse secrets file %q: %w", path, err)
	}
	return parsed.Warehouse, nil
}

// ValidateForSnowflake checks the fields the Snowflake DSN builder
// cannot default.
func (c Credentials) ValidateForSnowflake() error {
	var missing []string
	if strings.TrimSpace(c.User) == "" {
		missing = append(missing, "user")
	}
	if strings.TrimSpace(c.Password) == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(c.Account) == "" {
		missing = append(missing, "account")
	}
	if len(missing) > 0 {
		return fmt.Errorf("secrets file is missing required warehouse fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
