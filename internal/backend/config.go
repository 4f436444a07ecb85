package backend

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Default ports and users applied before a connection identity is resolved.
const (
	DefaultHost          = "localhost"
	DefaultPostgresPort  = 5432
	DefaultMySQLPort     = 3306
	DefaultMongoPort     = 27017
	DefaultPostgresUser  = "postgres"
	DefaultMySQLUser     = "root"
	DefaultPostgresSSL   = "disable"
	defaultMongoDatabase = "test"
)

// Config holds the parameters needed to reach one database.
// Path is used by SQLite only; ConnectionString by MongoDB only.
type Config struct {
	Kind             Kind
	Path             string
	Host             string
	Port             int
	Database         string
	User             string
	Password         string
	SSLMode          string
	ConnectionString string
}

// WithDefaults returns a copy with host, port, user and sslmode filled in.
func (c Config) WithDefaults() Config {
	if !c.Kind.Networked() {
		return c
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	switch c.Kind {
	case Postgres:
		if c.Port == 0 {
			c.Port = DefaultPostgresPort
		}
		if c.User == "" {
			c.User = DefaultPostgresUser
		}
		if c.SSLMode == "" {
			c.SSLMode = DefaultPostgresSSL
		}
	case MySQL:
		if c.Port == 0 {
			c.Port = DefaultMySQLPort
		}
		if c.User == "" {
			c.User = DefaultMySQLUser
		}
	case MongoDB:
		if c.Port == 0 {
			c.Port = DefaultMongoPort
		}
		if c.Database == "" {
			c.Database = defaultMongoDatabase
		}
	case SQLite:
	}
	return c
}

// Validate checks that the fields required by the backend are present.
func (c Config) Validate() error {
	switch c.Kind {
	case SQLite:
		if strings.TrimSpace(c.Path) == "" {
			return errors.New("sqlite: database_path is required")
		}
	case Postgres, MySQL:
		if c.Database == "" {
			return fmt.Errorf("%s: database is required", c.Kind)
		}
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("%s: port %d out of range", c.Kind, c.Port)
		}
	case MongoDB:
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("%s: port %d out of range", c.Kind, c.Port)
		}
		if c.ConnectionString != "" {
			if _, err := url.Parse(c.ConnectionString); err != nil {
				return fmt.Errorf("mongodb: invalid connection string: %w", err)
			}
		}
	default:
		return fmt.Errorf("unknown backend kind %q", c.Kind)
	}
	return nil
}

// MongoURI returns the connection string for a MongoDB config, building one
// from host, port and optional credentials when none was given.
func (c Config) MongoURI() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	u := url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%d", c.Host, c.Port)}
	if c.User != "" && c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

// Address is host:port for networked backends and the path for SQLite.
func (c Config) Address() string {
	if !c.Kind.Networked() {
		return c.Path
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
