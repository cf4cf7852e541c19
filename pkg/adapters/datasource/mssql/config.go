package mssql

import "fmt"

// Config contains SQL Server-specific connection options. Either DSN is
// set, or the discrete fields are.
type Config struct {
	DSN      string
	Host     string
	Port     int
	Database string
	Username string
	Password string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int // seconds
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromMap creates a Config from a generic config map. A "dsn" key takes
// precedence over the discrete fields.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:              DefaultPort(),
		Encrypt:           true,
		ConnectionTimeout: DefaultConnectionTimeout(),
	}

	if dsn, ok := config["dsn"].(string); ok && dsn != "" {
		cfg.DSN = dsn
		return cfg, nil
	}

	if host, ok := config["host"].(string); ok {
		cfg.Host = host
	} else {
		return nil, fmt.Errorf("host is required")
	}

	if port, ok := config["port"].(float64); ok { // JSON numbers are float64
		cfg.Port = int(port)
	} else if port, ok := config["port"].(int); ok {
		cfg.Port = port
	}

	if database, ok := config["database"].(string); ok {
		cfg.Database = database
	} else {
		return nil, fmt.Errorf("database is required")
	}

	if username, ok := config["username"].(string); ok {
		cfg.Username = username
	} else if user, ok := config["user"].(string); ok {
		cfg.Username = user
	} else {
		return nil, fmt.Errorf("username is required")
	}

	if password, ok := config["password"].(string); ok {
		cfg.Password = password
	}

	if encrypt, ok := config["encrypt"].(bool); ok {
		cfg.Encrypt = encrypt
	}

	if trust, ok := config["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	if timeout, ok := config["connection_timeout"].(float64); ok {
		cfg.ConnectionTimeout = int(timeout)
	} else if timeout, ok := config["connection_timeout"].(int); ok {
		cfg.ConnectionTimeout = timeout
	}

	return cfg, nil
}
