package local

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedUser is one entry of a seed file
type SeedUser struct {
	UID          string                 `yaml:"uid"`
	Email        string                 `yaml:"email"`
	Password     string                 `yaml:"password,omitempty"`
	PasswordHash string                 `yaml:"password_hash,omitempty"`
	Claims       map[string]interface{} `yaml:"claims,omitempty"`
	Disabled     bool                   `yaml:"disabled,omitempty"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

// LoadSeedFile reads seed users from a YAML file
func LoadSeedFile(path string) ([]SeedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed users from YAML
func ParseSeed(data []byte) ([]SeedUser, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, u := range file.Users {
		if u.UID == "" || u.Email == "" {
			return nil, fmt.Errorf("seed user %d: uid and email are required", i)
		}
		if u.Password == "" && u.PasswordHash == "" {
			return nil, fmt.Errorf("seed user %q: password or password_hash is required", u.UID)
		}
	}
	return file.Users, nil
}

// Seed registers users. Plain passwords are hashed; password_hash values are used as-is.
func (p *Provider) Seed(users []SeedUser) error {
	for _, u := range users {
		if u.PasswordHash != "" {
			if _, err := p.addHashed(u.UID, u.Email, u.PasswordHash, u.Claims, u.Disabled); err != nil {
				return fmt.Errorf("seed user %q: %w", u.UID, err)
			}
			continue
		}
		if _, err := p.AddUser(u.UID, u.Email, u.Password, u.Claims); err != nil {
			return fmt.Errorf("seed user %q: %w", u.UID, err)
		}
		if u.Disabled {
			if err := p.Disable(u.UID); err != nil {
				return err
			}
		}
	}
	return nil
}
