package model

import "fmt"

// DatabaseType is the engine tag on a ConnectionConfig — one of the
// seventeen supported stores.
type DatabaseType string

const (
	PostgreSQL  DatabaseType = "PostgreSQL"
	MySQL       DatabaseType = "MySQL"
	MariaDB     DatabaseType = "MariaDB"
	SQLite      DatabaseType = "SQLite"
	MSSQL       DatabaseType = "MSSQL"
	Oracle      DatabaseType = "Oracle"
	CockroachDB DatabaseType = "CockroachDB"
	Redshift    DatabaseType = "Redshift"
	ClickHouse  DatabaseType = "ClickHouse"
	Snowflake   DatabaseType = "Snowflake"
	BigQuery    DatabaseType = "BigQuery"
	MongoDB     DatabaseType = "MongoDB"
	Cassandra   DatabaseType = "Cassandra"
	Redis       DatabaseType = "Redis"
	Neo4j       DatabaseType = "Neo4j"
	DynamoDB    DatabaseType = "DynamoDB"
	ScyllaDB    DatabaseType = "ScyllaDB"
)

// DatabaseCategory is the driver's capability family (§3, §4.1).
type DatabaseCategory string

const (
	CategoryRelational DatabaseCategory = "Relational"
	CategoryAnalytics  DatabaseCategory = "Analytics"
	CategoryDocument   DatabaseCategory = "Document"
	CategoryKeyValue   DatabaseCategory = "KeyValue"
	CategoryGraph      DatabaseCategory = "Graph"
	CategoryWideColumn DatabaseCategory = "WideColumn"
)

// DefaultPort returns the engine's conventional port, or 0 when the engine
// has none (SQLite, and the three cloud-native engines addressed by URL/SDK
// endpoint rather than host:port).
func (t DatabaseType) DefaultPort() int {
	switch t {
	case PostgreSQL, CockroachDB:
		return 5432
	case Redshift:
		return 5439
	case MySQL, MariaDB:
		return 3306
	case MSSQL:
		return 1433
	case Oracle:
		return 1521
	case ClickHouse:
		return 8123
	case MongoDB:
		return 27017
	case Cassandra, ScyllaDB:
		return 9042
	case Redis:
		return 6379
	case Neo4j:
		return 7687
	default: // Snowflake, BigQuery, DynamoDB, SQLite
		return 0
	}
}

// CloudAuthKind tags which cloud-auth variant is populated.
type CloudAuthKind string

const (
	CloudAuthNone  CloudAuthKind = ""
	CloudAuthAWS   CloudAuthKind = "AwsCredentials"
	CloudAuthGCP   CloudAuthKind = "GcpServiceAccount"
)

// CloudAuth is the closed union of cloud-credential shapes a config may carry.
type CloudAuth struct {
	Kind             CloudAuthKind
	AccessKey        string
	SecretKey        string
	Region           string
	CredentialsJSON  string
}

// SSHConfig is the SSH forwarding block (§3, §4.8).
type SSHConfig struct {
	Enabled    bool
	Host       string
	Port       int // default 22
	User       string
	Password   string
	KeyPath    string
	Passphrase string
}

// PoolConfig tunes the driver's connection pool (§5 "Resources").
// DefaultPoolConfig returns the values noted below; a zero-valued
// PoolConfig is not replaced by them and reaches database/sql as is,
// where 0 means no limit.
type PoolConfig struct {
	MaxConnections     int // DefaultPoolConfig: 5
	IdleTimeoutSecs    int // DefaultPoolConfig: 300
	AcquireTimeoutSecs int // DefaultPoolConfig: 10; no driver applies it
}

// ConnectionConfig is the user-supplied, long-lived connection definition.
// The engine tag determines which extras are consulted; missing values
// resolve through the *OrDefault getters below.
type ConnectionConfig struct {
	ID       string
	Name     string
	DBType   DatabaseType
	Host     string
	Port     int
	Username string
	Password string
	Database string
	UseSSL   bool

	// SQLite
	FilePath string
	// Oracle
	OracleSID         string
	OracleServiceName string
	// Snowflake
	SnowflakeAccount   string
	SnowflakeWarehouse string
	SnowflakeRole      string
	// Neo4j
	BoltURL string
	// Cloud auth (BigQuery, DynamoDB) + AWS region
	CloudAuth *CloudAuth
	AWSRegion string

	SSH SSHConfig

	SSLCACert     string
	SSLClientCert string
	SSLClientKey  string

	UseKeychain bool

	Pool PoolConfig
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxConnections: 5, IdleTimeoutSecs: 300, AcquireTimeoutSecs: 10}
}

func (c *ConnectionConfig) HostOrDefault() string {
	if c.Host == "" {
		return "localhost"
	}
	return c.Host
}

func (c *ConnectionConfig) PortOrDefault() int {
	if c.Port != 0 {
		return c.Port
	}
	return c.DBType.DefaultPort()
}

func (c *ConnectionConfig) UsernameOrDefault() string { return c.Username }
func (c *ConnectionConfig) PasswordOrDefault() string { return c.Password }
func (c *ConnectionConfig) DatabaseOrDefault() string { return c.Database }

// URL synthesises the engine-specific connection string (§6 "Connection URLs").
func (c *ConnectionConfig) URL() string {
	switch c.DBType {
	case PostgreSQL, CockroachDB, Redshift:
		sslMode := "disable"
		if c.UseSSL {
			sslMode = "require"
		}
		url := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.UsernameOrDefault(), c.PasswordOrDefault(), c.HostOrDefault(), c.PortOrDefault(),
			c.DatabaseOrDefault(), sslMode)
		if c.SSLCACert != "" {
			url += "&sslrootcert=" + c.SSLCACert
		}
		if c.SSLClientCert != "" {
			url += "&sslcert=" + c.SSLClientCert
		}
		if c.SSLClientKey != "" {
			url += "&sslkey=" + c.SSLClientKey
		}
		return url
	case MySQL, MariaDB:
		url := fmt.Sprintf("mysql://%s:%s@%s:%d/%s",
			c.UsernameOrDefault(), c.PasswordOrDefault(), c.HostOrDefault(), c.PortOrDefault(),
			c.DatabaseOrDefault())
		var params []string
		if c.UseSSL {
			params = append(params, "ssl-mode=REQUIRED")
		}
		if c.SSLCACert != "" {
			params = append(params, "ssl-ca="+c.SSLCACert)
		}
		if c.SSLClientCert != "" {
			params = append(params, "ssl-cert="+c.SSLClientCert)
		}
		if c.SSLClientKey != "" {
			params = append(params, "ssl-key="+c.SSLClientKey)
		}
		if len(params) > 0 {
			url += "?"
			for i, p := range params {
				if i > 0 {
					url += "&"
				}
				url += p
			}
		}
		return url
	case SQLite:
		if c.FilePath != "" {
			return "sqlite:" + c.FilePath
		}
		return "sqlite::memory:"
	case MSSQL:
		return fmt.Sprintf(
			"server=tcp:%s,%d;database=%s;user=%s;password=%s;TrustServerCertificate=true",
			c.HostOrDefault(), c.PortOrDefault(), c.DatabaseOrDefault(), c.UsernameOrDefault(), c.PasswordOrDefault())
	case ClickHouse:
		return fmt.Sprintf("http://%s:%d", c.HostOrDefault(), c.PortOrDefault())
	case MongoDB:
		auth := ""
		if c.UsernameOrDefault() != "" {
			auth = fmt.Sprintf("%s:%s@", c.UsernameOrDefault(), c.PasswordOrDefault())
		}
		return fmt.Sprintf("mongodb://%s%s:%d", auth, c.HostOrDefault(), c.PortOrDefault())
	case Redis:
		if c.PasswordOrDefault() != "" {
			return fmt.Sprintf("redis://:%s@%s:%d/%s", c.PasswordOrDefault(), c.HostOrDefault(), c.PortOrDefault(), c.DatabaseOrDefault())
		}
		return fmt.Sprintf("redis://%s:%d/%s", c.HostOrDefault(), c.PortOrDefault(), c.DatabaseOrDefault())
	case Neo4j:
		if c.BoltURL != "" {
			return c.BoltURL
		}
		return fmt.Sprintf("bolt://%s:%d", c.HostOrDefault(), c.PortOrDefault())
	case Cassandra, ScyllaDB:
		return fmt.Sprintf("%s:%d", c.HostOrDefault(), c.PortOrDefault())
	case Oracle:
		if c.OracleServiceName != "" {
			return fmt.Sprintf("//%s:%d/%s", c.HostOrDefault(), c.PortOrDefault(), c.OracleServiceName)
		}
		if c.OracleSID != "" {
			return fmt.Sprintf("(DESCRIPTION=(ADDRESS=(PROTOCOL=TCP)(HOST=%s)(PORT=%d))(CONNECT_DATA=(SID=%s)))",
				c.HostOrDefault(), c.PortOrDefault(), c.OracleSID)
		}
		return fmt.Sprintf("//%s:%d/%s", c.HostOrDefault(), c.PortOrDefault(), c.DatabaseOrDefault())
	case Snowflake, BigQuery, DynamoDB:
		return ""
	default:
		return ""
	}
}

// WithSSHDisabled returns a shallow copy with SSH.Enabled forced false,
// used by the tunnel manager to prevent recursive tunneling (§4.8).
func (c ConnectionConfig) WithSSHDisabled() ConnectionConfig {
	c.SSH.Enabled = false
	return c
}
