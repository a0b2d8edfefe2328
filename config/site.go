package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/leeforge/adminsite/auth"
	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/security"
	"github.com/leeforge/adminsite/store"
)

// SiteConfig is the file layout read by the adminsite binary.
type SiteConfig struct {
	Site     SiteSection       `mapstructure:"site" json:"site" yaml:"site"`
	Logging  logging.Config    `mapstructure:"logging" json:"logging" yaml:"logging"`
	Store    store.Config      `mapstructure:"store" json:"store" yaml:"store"`
	Security security.Config   `mapstructure:"security" json:"security" yaml:"security"`
	Users    []auth.StaticUser `mapstructure:"users" json:"users" yaml:"users" validate:"dive"`
	Policies []Policy          `mapstructure:"policies" json:"policies" yaml:"policies" validate:"dive"`
	Roles    []RoleAssignment  `mapstructure:"roles" json:"roles" yaml:"roles" validate:"dive"`
}

type SiteSection struct {
	Title string `mapstructure:"title" json:"title" yaml:"title" default:"Administration"`
	// Namespace prefixes URL names and is used as the mount point.
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace" default:"admin" validate:"required,alphanum"`
	Addr      string `mapstructure:"addr" json:"addr" yaml:"addr" default:":8080" validate:"required"`
	// UserHeader carries the username when no other authentication is wired.
	UserHeader string `mapstructure:"user-header" json:"userHeader" yaml:"user-header" default:"X-Admin-User"`
	// DefaultTheme is used by the theme plugin when a user has none stored.
	DefaultTheme string `mapstructure:"default-theme" json:"defaultTheme" yaml:"default-theme" default:"default"`
	// ExcludePlugins switches plugins off site wide.
	ExcludePlugins []string `mapstructure:"exclude-plugins" json:"excludePlugins" yaml:"exclude-plugins"`
}

// Policy grants Action on Object ("app.model", wildcard allowed) to Subject.
type Policy struct {
	Subject string `mapstructure:"subject" json:"subject" yaml:"subject" validate:"required"`
	Object  string `mapstructure:"object" json:"object" yaml:"object" validate:"required"`
	Action  string `mapstructure:"action" json:"action" yaml:"action" validate:"required"`
}

type RoleAssignment struct {
	User string `mapstructure:"user" json:"user" yaml:"user" validate:"required"`
	Role string `mapstructure:"role" json:"role" yaml:"role" validate:"required"`
}

var validate = validator.New()

// Validate checks the validate tags.
func (c *SiteConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// UserTable indexes the configured users by username.
func (c *SiteConfig) UserTable() map[string]auth.User {
	users := make(map[string]auth.User, len(c.Users))
	for i := range c.Users {
		u := &c.Users[i]
		users[u.Name] = u
	}
	return users
}

// LoadSite reads, defaults and validates a SiteConfig.
func LoadSite(opts Options) (*SiteConfig, *Config, error) {
	cfg, err := New(opts)
	if err != nil {
		return nil, nil, err
	}
	var site SiteConfig
	if err := cfg.BindWithDefaults(&site); err != nil {
		return nil, nil, err
	}
	if err := site.Validate(); err != nil {
		return nil, nil, err
	}
	return &site, cfg, nil
}
