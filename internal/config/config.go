package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production" | "test"
	DSN            string                `yaml:"-"`
	RedisURL       string                `yaml:"-"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Timezone       string                `yaml:"timezone"`
	Security       SecurityConfig        `yaml:"security"`
	Storage        StorageConfig         `yaml:"storage"`
	Search         SearchConfig          `yaml:"search"`
	Mail           MailConfig            `yaml:"mail"`
	Site           SiteConfig            `yaml:"site"`
}

type DatabaseRuntimeConfig struct {
	Driver    string            `yaml:"driver"` // sqlite | mysql | postgres
	DSN       string            `yaml:"dsn"`
	Path      string            `yaml:"path"` // sqlite file
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	SSLMode   string            `yaml:"sslmode"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	Enable   bool              `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Params   map[string]string `yaml:"params"`
}

type RuntimePathsConfig struct {
	Logs    string `yaml:"logs"`
	Uploads string `yaml:"uploads"`
}

// SecurityConfig controls authentication policy.
type SecurityConfig struct {
	MaxLoginAttempts         int    `yaml:"max_login_attempts"`
	LockoutMinutes           int    `yaml:"lockout_minutes"`
	PasswordMinLength        int    `yaml:"password_min_length"`
	AllowRegistration        bool   `yaml:"allow_registration"`
	RequireEmailVerification bool   `yaml:"require_email_verification"`
	SessionTTLHours          int    `yaml:"session_ttl_hours"`
	ResetTokenTTLMinutes     int    `yaml:"reset_token_ttl_minutes"`
	VerifyTokenTTLHours      int    `yaml:"verify_token_ttl_hours"`
	CookieName               string `yaml:"cookie_name"`
	CookieSecure             bool   `yaml:"cookie_secure"`
	CookieDomain             string `yaml:"cookie_domain"`
	ViewDedupeWindowHours    int    `yaml:"view_dedupe_window_hours"`
}

type StorageConfig struct {
	Driver      string   `yaml:"driver"` // local | s3
	PublicPath  string   `yaml:"public_path"`
	MaxUploadMB int      `yaml:"max_upload_mb"`
	S3          S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicURL       string `yaml:"public_url"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
}

type SearchConfig struct {
	Driver        string              `yaml:"driver"` // database | elasticsearch
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
}

type ElasticsearchConfig struct {
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Index     string   `yaml:"index"`
}

type MailConfig struct {
	Enable    bool   `yaml:"enable"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	UseResend bool   `yaml:"use_resend"`
	ResendKey string `yaml:"resend_key"`
}

type SiteConfig struct {
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	URL          string `yaml:"url"`
	PostsPerPage int    `yaml:"posts_per_page"`
}

// rawAppConfig mirrors the YAML file. Pointers distinguish "unset" from zero values.
type rawAppConfig struct {
	Port           int               `yaml:"port"`
	Env            string            `yaml:"env"`
	DSN            string            `yaml:"dsn"`
	DatabaseURL    string            `yaml:"database_url"`
	RedisURL       string            `yaml:"redis_url"`
	Database       rawDatabaseConfig `yaml:"database"`
	Redis          rawRedisConfig    `yaml:"redis"`
	Paths          rawPathsConfig    `yaml:"paths"`
	UploadDir      string            `yaml:"upload_dir"`
	LogDir         string            `yaml:"log_dir"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	CORSOrigins    []string          `yaml:"cors_allowed_origins"`
	JWTSecret      string            `yaml:"jwt_secret"`
	Timezone       string            `yaml:"timezone"`
	TZ             string            `yaml:"tz"`
	Security       rawSecurityConfig `yaml:"security"`
	Storage        rawStorageConfig  `yaml:"storage"`
	Search         rawSearchConfig   `yaml:"search"`
	Mail           rawMailConfig     `yaml:"mail"`
	Site           rawSiteConfig     `yaml:"site"`
}

type rawDatabaseConfig struct {
	Driver    string            `yaml:"driver"`
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Path      string            `yaml:"path"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	SSLMode   string            `yaml:"sslmode"`
	Params    map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	Enable   *bool             `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Params   map[string]string `yaml:"params"`
}

type rawPathsConfig struct {
	Logs    string `yaml:"logs"`
	Uploads string `yaml:"uploads"`
}

type rawSecurityConfig struct {
	MaxLoginAttempts         *int   `yaml:"max_login_attempts"`
	LockoutMinutes           *int   `yaml:"lockout_minutes"`
	PasswordMinLength        *int   `yaml:"password_min_length"`
	AllowRegistration        *bool  `yaml:"allow_registration"`
	RequireEmailVerification *bool  `yaml:"require_email_verification"`
	SessionTTLHours          *int   `yaml:"session_ttl_hours"`
	ResetTokenTTLMinutes     *int   `yaml:"reset_token_ttl_minutes"`
	VerifyTokenTTLHours      *int   `yaml:"verify_token_ttl_hours"`
	CookieName               string `yaml:"cookie_name"`
	CookieSecure             *bool  `yaml:"cookie_secure"`
	CookieDomain             string `yaml:"cookie_domain"`
	ViewDedupeWindowHours    *int   `yaml:"view_dedupe_window_hours"`
}

type rawStorageConfig struct {
	Driver      string      `yaml:"driver"`
	PublicPath  string      `yaml:"public_path"`
	MaxUploadMB *int        `yaml:"max_upload_mb"`
	S3          rawS3Config `yaml:"s3"`
}

type rawS3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicURL       string `yaml:"public_url"`
	CustomDomain    string `yaml:"custom_domain"`
	PathStyle       *bool  `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
}

type rawSearchConfig struct {
	Driver        string                 `yaml:"driver"`
	Elasticsearch rawElasticsearchConfig `yaml:"elasticsearch"`
}

type rawElasticsearchConfig struct {
	Address   string   `yaml:"address"`
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Index     string   `yaml:"index"`
}

type rawMailConfig struct {
	Enable    *bool  `yaml:"enable"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	Password  string `yaml:"password"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	UseResend *bool  `yaml:"use_resend"`
	ResendKey string `yaml:"resend_key"`
}

type rawSiteConfig struct {
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	URL          string `yaml:"url"`
	PostsPerPage int    `yaml:"posts_per_page"`
}

// Load reads the YAML file at configPath. A missing file yields the defaults so a
// fresh checkout can boot against a local SQLite database.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content, applies environment overrides and validates the result.
func Parse(content []byte) (*AppConfig, error) {
	return parse(content, os.LookupEnv)
}

func parse(content []byte, lookup LookupFunc) (*AppConfig, error) {
	cfg := defaultAppConfig()
	raw := rawAppConfig{}
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	}

	applyRawAppConfig(&cfg, raw)
	applyEnvOverrides(&cfg, lookup)
	finalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("invalid database.driver %q, expected sqlite, mysql or postgres", c.Database.Driver)
	}
	if c.Database.Driver != DriverSQLite && (c.Database.Port < 1 || c.Database.Port > 65535) {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
	}
	if c.Redis.Enable && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	switch c.Storage.Driver {
	case StorageLocal:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required when storage.driver is s3")
		}
	default:
		return fmt.Errorf("invalid storage.driver %q, expected local or s3", c.Storage.Driver)
	}
	switch c.Search.Driver {
	case SearchDatabase, SearchElasticsearch:
	default:
		return fmt.Errorf("invalid search.driver %q, expected database or elasticsearch", c.Search.Driver)
	}
	if c.Security.MaxLoginAttempts < 1 {
		return fmt.Errorf("invalid security.max_login_attempts %d, expected >= 1", c.Security.MaxLoginAttempts)
	}
	if c.Security.PasswordMinLength < 6 {
		return fmt.Errorf("invalid security.password_min_length %d, expected >= 6", c.Security.PasswordMinLength)
	}
	return nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Driver:    defaultDBDriver,
			Path:      defaultSQLitePath,
			Host:      defaultDBHost,
			User:      defaultDBUser,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
			SSLMode:   defaultPGSSLMode,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Security: SecurityConfig{
			MaxLoginAttempts:      defaultMaxLoginAttempts,
			LockoutMinutes:        defaultLockoutMinutes,
			PasswordMinLength:     defaultPasswordMinLength,
			SessionTTLHours:       defaultSessionTTLHours,
			ResetTokenTTLMinutes:  defaultResetTokenTTLMinutes,
			VerifyTokenTTLHours:   defaultVerifyTokenTTLHours,
			CookieName:            defaultAuthCookieName,
			ViewDedupeWindowHours: defaultViewDedupeWindowHours,
		},
		Storage: StorageConfig{
			Driver:      defaultStorageDriver,
			PublicPath:  defaultUploadPublicPath,
			MaxUploadMB: defaultMaxUploadMB,
			S3:          S3Config{Region: defaultS3Region},
		},
		Search: SearchConfig{
			Driver: defaultSearchDriver,
			Elasticsearch: ElasticsearchConfig{
				Addresses: []string{defaultElasticAddress},
				Index:     defaultElasticIndex,
			},
		},
		Mail: MailConfig{Port: defaultMailPort},
		Site: SiteConfig{
			Title:        defaultSiteTitle,
			PostsPerPage: defaultSitePostsPerPage,
		},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)

	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.Paths.Uploads); v != "" {
		cfg.Paths.Uploads = v
	}
	if v := strings.TrimSpace(raw.UploadDir); v != "" {
		cfg.Paths.Uploads = v
	}

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSOrigins)
	}

	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		cfg.Timezone = v
	}

	cfg.Security = applyRawSecurityConfig(cfg.Security, raw.Security)
	cfg.Storage = applyRawStorageConfig(cfg.Storage, raw.Storage)
	cfg.Search = applyRawSearchConfig(cfg.Search, raw.Search)
	cfg.Mail = applyRawMailConfig(cfg.Mail, raw.Mail)

	if v := strings.TrimSpace(raw.Site.Title); v != "" {
		cfg.Site.Title = v
	}
	if v := strings.TrimSpace(raw.Site.Description); v != "" {
		cfg.Site.Description = v
	}
	if v := strings.TrimSpace(raw.Site.URL); v != "" {
		cfg.Site.URL = v
	}
	if raw.Site.PostsPerPage > 0 {
		cfg.Site.PostsPerPage = raw.Site.PostsPerPage
	}
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	cfg := current
	db := raw.Database

	if v := strings.TrimSpace(db.Driver); v != "" {
		cfg.Driver = v
	}
	if v := strings.TrimSpace(db.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(db.URL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DatabaseURL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(db.Path); v != "" {
		cfg.Path = v
	}
	if v := strings.TrimSpace(db.Host); v != "" {
		cfg.Host = v
	}
	if db.Port != 0 {
		cfg.Port = db.Port
	}
	if v := strings.TrimSpace(db.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(db.Username); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(db.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(db.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(db.DBName); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(db.Charset); v != "" {
		cfg.Charset = v
	}
	if db.ParseTime != nil {
		cfg.ParseTime = *db.ParseTime
	}
	if v := strings.TrimSpace(db.Loc); v != "" {
		cfg.Loc = v
	}
	if v := strings.TrimSpace(db.SSLMode); v != "" {
		cfg.SSLMode = v
	}
	if db.Params != nil {
		cfg.Params = copyStringMap(db.Params)
	}
	return cfg
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current
	r := raw.Redis

	if v := strings.TrimSpace(r.URL); v != "" {
		cfg.URL = v
		cfg.Enable = true
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.URL = v
		cfg.Enable = true
	}
	if v := strings.TrimSpace(r.Host); v != "" {
		cfg.Host = v
		cfg.Enable = true
	}
	if r.Port != 0 {
		cfg.Port = r.Port
	}
	if v := strings.TrimSpace(r.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(r.Password); v != "" {
		cfg.Password = v
	}
	if r.DB != nil {
		cfg.DB = *r.DB
	}
	if r.TLS != nil {
		cfg.TLS = *r.TLS
	}
	if r.Params != nil {
		cfg.Params = copyStringMap(r.Params)
	}
	// An explicit enable flag wins over the implicit one.
	if r.Enable != nil {
		cfg.Enable = *r.Enable
	}
	return cfg
}

func applyRawSecurityConfig(cfg SecurityConfig, raw rawSecurityConfig) SecurityConfig {
	if raw.MaxLoginAttempts != nil {
		cfg.MaxLoginAttempts = *raw.MaxLoginAttempts
	}
	if raw.LockoutMinutes != nil {
		cfg.LockoutMinutes = *raw.LockoutMinutes
	}
	if raw.PasswordMinLength != nil {
		cfg.PasswordMinLength = *raw.PasswordMinLength
	}
	if raw.AllowRegistration != nil {
		cfg.AllowRegistration = *raw.AllowRegistration
	}
	if raw.RequireEmailVerification != nil {
		cfg.RequireEmailVerification = *raw.RequireEmailVerification
	}
	if raw.SessionTTLHours != nil {
		cfg.SessionTTLHours = *raw.SessionTTLHours
	}
	if raw.ResetTokenTTLMinutes != nil {
		cfg.ResetTokenTTLMinutes = *raw.ResetTokenTTLMinutes
	}
	if raw.VerifyTokenTTLHours != nil {
		cfg.VerifyTokenTTLHours = *raw.VerifyTokenTTLHours
	}
	if v := strings.TrimSpace(raw.CookieName); v != "" {
		cfg.CookieName = v
	}
	if raw.CookieSecure != nil {
		cfg.CookieSecure = *raw.CookieSecure
	}
	if v := strings.TrimSpace(raw.CookieDomain); v != "" {
		cfg.CookieDomain = v
	}
	if raw.ViewDedupeWindowHours != nil {
		cfg.ViewDedupeWindowHours = *raw.ViewDedupeWindowHours
	}
	return cfg
}

func applyRawStorageConfig(cfg StorageConfig, raw rawStorageConfig) StorageConfig {
	if v := strings.TrimSpace(raw.Driver); v != "" {
		cfg.Driver = v
	}
	if v := strings.TrimSpace(raw.PublicPath); v != "" {
		cfg.PublicPath = v
	}
	if raw.MaxUploadMB != nil {
		cfg.MaxUploadMB = *raw.MaxUploadMB
	}
	s3 := raw.S3
	if v := strings.TrimSpace(s3.Bucket); v != "" {
		cfg.S3.Bucket = v
	}
	if v := strings.TrimSpace(s3.Region); v != "" {
		cfg.S3.Region = v
	}
	if v := strings.TrimSpace(s3.Endpoint); v != "" {
		cfg.S3.Endpoint = v
	}
	if v := strings.TrimSpace(s3.AccessKeyID); v != "" {
		cfg.S3.AccessKeyID = v
	}
	if v := strings.TrimSpace(s3.SecretAccessKey); v != "" {
		cfg.S3.SecretAccessKey = v
	}
	if v := strings.TrimSpace(s3.PublicURL); v != "" {
		cfg.S3.PublicURL = v
	}
	if v := strings.TrimSpace(s3.CustomDomain); v != "" {
		cfg.S3.PublicURL = v
	}
	if s3.PathStyle != nil {
		cfg.S3.PathStyle = *s3.PathStyle
	}
	if v := strings.TrimSpace(s3.Prefix); v != "" {
		cfg.S3.Prefix = v
	}
	return cfg
}

func applyRawSearchConfig(cfg SearchConfig, raw rawSearchConfig) SearchConfig {
	if v := strings.TrimSpace(raw.Driver); v != "" {
		cfg.Driver = v
	}
	es := raw.Elasticsearch
	switch {
	case len(es.Addresses) > 0:
		cfg.Elasticsearch.Addresses = normalizeOrigins(es.Addresses)
	case strings.TrimSpace(es.Address) != "":
		cfg.Elasticsearch.Addresses = []string{strings.TrimSpace(es.Address)}
	}
	if v := strings.TrimSpace(es.Username); v != "" {
		cfg.Elasticsearch.Username = v
	}
	if v := strings.TrimSpace(es.Password); v != "" {
		cfg.Elasticsearch.Password = v
	}
	if v := strings.TrimSpace(es.Index); v != "" {
		cfg.Elasticsearch.Index = v
	}
	return cfg
}

func applyRawMailConfig(cfg MailConfig, raw rawMailConfig) MailConfig {
	if raw.Enable != nil {
		cfg.Enable = *raw.Enable
	}
	if v := strings.TrimSpace(raw.Host); v != "" {
		cfg.Host = v
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Pass); v != "" {
		cfg.Pass = v
	}
	if v := strings.TrimSpace(raw.Password); v != "" {
		cfg.Pass = v
	}
	if v := strings.TrimSpace(raw.From); v != "" {
		cfg.From = v
	}
	if v := strings.TrimSpace(raw.ReplyTo); v != "" {
		cfg.ReplyTo = v
	}
	if raw.UseResend != nil {
		cfg.UseResend = *raw.UseResend
	}
	if v := strings.TrimSpace(raw.ResendKey); v != "" {
		cfg.ResendKey = v
	}
	return cfg
}

// finalize normalizes every section and derives DSN / RedisURL.
func finalize(cfg *AppConfig) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.Paths = normalizeRuntimePaths(cfg.Paths)
	cfg.Storage = normalizeStorageConfig(cfg.Storage)
	cfg.Search.Driver = strings.ToLower(strings.TrimSpace(cfg.Search.Driver))
	cfg.Site.URL = strings.TrimRight(strings.TrimSpace(cfg.Site.URL), "/")

	cfg.DSN = cfg.Database.DSNValue()
	if cfg.Redis.Enable {
		cfg.RedisURL = cfg.Redis.URLValue()
	} else {
		cfg.RedisURL = ""
	}
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) IsTest() bool {
	return strings.EqualFold(c.Env, "test")
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

func (c *AppConfig) UploadDir() string {
	if c == nil {
		return ResolveRuntimePath("", "uploads")
	}
	return ResolveRuntimePath(c.Paths.Uploads, "uploads")
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *AppConfig) MaxUploadBytes() int64 {
	return int64(c.Storage.MaxUploadMB) << 20
}
