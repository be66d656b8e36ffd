package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 8080
	defaultEnv        = "development"

	defaultDBDriver   = DriverSQLite
	defaultDBHost     = "127.0.0.1"
	defaultMySQLPort  = 3306
	defaultPGPort     = 5432
	defaultDBUser     = "root"
	defaultDBName     = "inkwell"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultPGSSLMode  = "disable"
	defaultSQLitePath = "data/inkwell.db"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0

	defaultMaxLoginAttempts      = 5
	defaultLockoutMinutes        = 15
	defaultPasswordMinLength     = 8
	defaultSessionTTLHours       = 24 * 30
	defaultResetTokenTTLMinutes  = 60
	defaultVerifyTokenTTLHours   = 48
	defaultAuthCookieName        = "inkwell_token"
	defaultStorageDriver         = StorageLocal
	defaultUploadPublicPath      = "/uploads"
	defaultMaxUploadMB           = 10
	defaultSearchDriver          = SearchDatabase
	defaultElasticAddress        = "http://localhost:9200"
	defaultElasticIndex          = "inkwell-content"
	defaultSiteTitle             = "Inkwell"
	defaultSitePostsPerPage      = 10
	defaultMailPort              = 587
	defaultS3Region              = "us-east-1"
	defaultViewDedupeWindowHours = 1
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Media storage drivers.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Search backends.
const (
	SearchDatabase      = "database"
	SearchElasticsearch = "elasticsearch"
)
