// Package config reads every BiblioNet process's settings from BIBLIONET_*
// environment variables.
package config

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Cron          CronConfig
	Catalog       CatalogConfig
	Sales         SalesConfig
	Sendgrid      SendgridConfig
}

// Load parses the environment, derives the database DSN and checks the
// settings against each other. Every problem found is reported in one error.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.resolveDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs error
	if port, err := strconv.Atoi(c.App.Port); err != nil || port <= 0 || port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be a TCP port, got %q", EnvPort, c.App.Port))
	}
	if _, err := c.App.Location(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.DB.Driver != DriverPostgres && c.DB.Driver != DriverSQLite {
		errs = multierr.Append(errs, fmt.Errorf("%s must be %s or %s, got %q", EnvDBDriver, DriverPostgres, DriverSQLite, c.DB.Driver))
	}
	if c.JWT.ExpirationMinutes <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	} else if c.JWT.RefreshTokenTTL() <= time.Duration(c.JWT.ExpirationMinutes)*time.Minute {
		errs = multierr.Append(errs, fmt.Errorf("%s must exceed %s", EnvRefreshTokenTTLMinutes, EnvJWTExpMins))
	}
	if c.App.IsProd() && len(c.JWT.Secret) < minProdSecretLen {
		errs = multierr.Append(errs, fmt.Errorf("%s must be at least %d characters in prod", EnvJWTSecret, minProdSecretLen))
	}
	for env, size := range map[string]int{
		EnvCatalogPageSize:   c.Catalog.PageSize,
		EnvInventoryPageSize: c.Catalog.InventoryPageSize,
		EnvLoansPageSize:     c.Catalog.LoansPageSize,
	} {
		if size <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s must be positive, got %d", env, size))
		}
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"BIBLIONET_APP_ENV" required:"true"`
	Port         string `envconfig:"BIBLIONET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BIBLIONET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BIBLIONET_LOG_WARN_STACK" default:"false"`
	TimeZone     string `envconfig:"BIBLIONET_TIMEZONE" default:"America/Tegucigalpa"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the library's local time zone; calendar days are counted in it.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.TimeZone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvTimeZone, name, err)
	}
	return loc, nil
}

type ServiceConfig struct {
	Kind string `envconfig:"BIBLIONET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BIBLIONET_DB_DSN"`
	Driver string `envconfig:"BIBLIONET_DB_DRIVER" default:"postgres"`

	// Used to build the DSN when BIBLIONET_DB_DSN is unset.
	Host     string `envconfig:"BIBLIONET_DB_HOST"`
	Port     int    `envconfig:"BIBLIONET_DB_PORT" default:"5432"`
	User     string `envconfig:"BIBLIONET_DB_USER"`
	Password string `envconfig:"BIBLIONET_DB_PASSWORD"`
	Name     string `envconfig:"BIBLIONET_DB_NAME"`
	SSLMode  string `envconfig:"BIBLIONET_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"BIBLIONET_SQLITE_PATH" default:"biblionet.db"`

	MaxOpenConns    int           `envconfig:"BIBLIONET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BIBLIONET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BIBLIONET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BIBLIONET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"BIBLIONET_DB_SLOW_QUERY" default:"500ms"`
	TxAttempts      int           `envconfig:"BIBLIONET_DB_TX_ATTEMPTS" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BIBLIONET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BIBLIONET_REDIS_ADDR"`
	Password     string        `envconfig:"BIBLIONET_REDIS_PASSWORD"`
	DB           int           `envconfig:"BIBLIONET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BIBLIONET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BIBLIONET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BIBLIONET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BIBLIONET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BIBLIONET_REDIS_WRITE_TIMEOUT" default:"5s"`
	Namespace    string        `envconfig:"BIBLIONET_REDIS_NAMESPACE" default:"bn"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BIBLIONET_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BIBLIONET_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BIBLIONET_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"BIBLIONET_REFRESH_TOKEN_TTL_MINUTES" default:"1440"`
	RememberMeTTLMinutes   int    `envconfig:"BIBLIONET_REMEMBER_ME_TTL_MINUTES" default:"20160"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// RememberMeTTL is the refresh TTL granted to staff sessions that ask to be remembered.
func (j JWTConfig) RememberMeTTL() time.Duration {
	if j.RememberMeTTLMinutes <= 0 {
		return j.RefreshTokenTTL()
	}
	return time.Duration(j.RememberMeTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BIBLIONET_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BIBLIONET_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BIBLIONET_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BIBLIONET_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BIBLIONET_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BIBLIONET_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BIBLIONET_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BIBLIONET_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BIBLIONET_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BIBLIONET_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BIBLIONET_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `envconfig:"BIBLIONET_RATE_LIMIT_RPS" default:"20"`
	Burst             int           `envconfig:"BIBLIONET_RATE_LIMIT_BURST" default:"40"`
	IdleTTL           time.Duration `envconfig:"BIBLIONET_RATE_LIMIT_IDLE_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BIBLIONET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BIBLIONET_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	MoraSweepSchedule         string        `envconfig:"BIBLIONET_CRON_MORA_SWEEP" default:"0 15 0 * * *"`
	ReservationExpirySchedule string        `envconfig:"BIBLIONET_CRON_RESERVATION_EXPIRY" default:"0 */30 * * * *"`
	OverdueReminderSchedule   string        `envconfig:"BIBLIONET_CRON_OVERDUE_REMINDERS" default:"0 0 9 * * *"`
	LockTTL                   time.Duration `envconfig:"BIBLIONET_CRON_LOCK_TTL" default:"10m"`
}

type CatalogConfig struct {
	PageSize           int    `envconfig:"BIBLIONET_CATALOG_PAGE_SIZE" default:"9"`
	InventoryPageSize  int    `envconfig:"BIBLIONET_INVENTORY_PAGE_SIZE" default:"5"`
	LoansPageSize      int    `envconfig:"BIBLIONET_LOANS_PAGE_SIZE" default:"10"`
	ReservationTTLDays int    `envconfig:"BIBLIONET_RESERVATION_TTL_DAYS" default:"2"`
	CoverDir           string `envconfig:"BIBLIONET_COVER_DIR" default:"media/portadas"`
	MaxCoverSizeMB     int    `envconfig:"BIBLIONET_MAX_COVER_MB" default:"5"`
}

// ReservationTTL is how long a reservation stays active.
func (c CatalogConfig) ReservationTTL() time.Duration {
	days := c.ReservationTTLDays
	if days <= 0 {
		days = 2
	}
	return time.Duration(days) * 24 * time.Hour
}

// MaxCoverBytes caps uploaded cover images.
func (c CatalogConfig) MaxCoverBytes() int64 {
	if c.MaxCoverSizeMB <= 0 {
		return 5 << 20
	}
	return int64(c.MaxCoverSizeMB) << 20
}

type SalesConfig struct {
	ReceiptPrefix  string        `envconfig:"BIBLIONET_RECEIPT_PREFIX" default:"VTA"`
	IdempotencyTTL time.Duration `envconfig:"BIBLIONET_SALES_IDEMPOTENCY_TTL" default:"24h"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"BIBLIONET_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"BIBLIONET_SENDGRID_FROM_EMAIL" default:"no-reply@biblionet.hn"`
	FromName    string `envconfig:"BIBLIONET_SENDGRID_FROM_NAME" default:"BiblioNet"`
}

// Enabled reports whether outbound email is configured.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// resolveDSN fills DSN for sqlite from the file path, or for postgres from
// the discrete host settings when no DSN was given.
func (db *DBConfig) resolveDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	user := url.User(db.User)
	if db.Password != "" {
		user = url.UserPassword(db.User, db.Password)
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
