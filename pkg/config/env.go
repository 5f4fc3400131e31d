package config

const EnvPrefix = "BIBLIONET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv                 = "BIBLIONET_APP_ENV"
	EnvPort                   = "BIBLIONET_APP_PORT"
	EnvLogLevel               = "BIBLIONET_LOG_LEVEL"
	EnvTimeZone               = "BIBLIONET_TIMEZONE"
	EnvDBDSN                  = "BIBLIONET_DB_DSN"
	EnvDBHost                 = "BIBLIONET_DB_HOST"
	EnvDBUser                 = "BIBLIONET_DB_USER"
	EnvDBName                 = "BIBLIONET_DB_NAME"
	EnvDBPassword             = "BIBLIONET_DB_PASSWORD"
	EnvRedisURL               = "BIBLIONET_REDIS_URL"
	EnvJWTSecret              = "BIBLIONET_JWT_SECRET"
	EnvJWTIssuer              = "BIBLIONET_JWT_ISSUER"
	EnvJWTExpMins             = "BIBLIONET_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "BIBLIONET_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite              = "BIBLIONET_USE_SQLITE"
	EnvSQLitePath             = "BIBLIONET_SQLITE_PATH"
	EnvDBDriver               = "BIBLIONET_DB_DRIVER"
	EnvCatalogPageSize        = "BIBLIONET_CATALOG_PAGE_SIZE"
	EnvInventoryPageSize      = "BIBLIONET_INVENTORY_PAGE_SIZE"
	EnvLoansPageSize          = "BIBLIONET_LOANS_PAGE_SIZE"
)

// minProdSecretLen is the shortest JWT secret accepted with APP_ENV=prod.
const minProdSecretLen = 32
