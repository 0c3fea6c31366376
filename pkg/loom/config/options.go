package config

import "fmt"

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the repository backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case "memory", "sqlite":
		case "postgres":
			if url == "" {
				return fmt.Errorf("database URL is required for postgres")
			}
		default:
			return fmt.Errorf("database type must be 'memory', 'postgres' or 'sqlite', got: %s", dbType)
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithSQLitePath sets the database file used by the sqlite backend
func WithSQLitePath(path string) Option {
	return func(c *ServerConfig) error {
		if path == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
		c.SQLitePath = path
		return nil
	}
}

// WithAuthSecret enables JWT actor verification
func WithAuthSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.AuthSecret = secret
		return nil
	}
}

// WithContentApproval toggles the publish approval gate
func WithContentApproval(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.ContentApproval = enabled
		return nil
	}
}

// WithAuditLog toggles the structured activity log sink
func WithAuditLog(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AuditLog = enabled
		return nil
	}
}
