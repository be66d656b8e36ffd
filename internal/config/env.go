package config

import (
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// applyEnvOverrides lets CMS_* variables override YAML values.
func applyEnvOverrides(cfg *AppConfig, lookup LookupFunc) {
	if lookup == nil {
		return
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	num("CMS_PORT", &cfg.Port)
	str("CMS_ENV", &cfg.Env)
	str("CMS_JWT_SECRET", &cfg.JWTSecret)
	str("CMS_TIMEZONE", &cfg.Timezone)

	str("CMS_DATABASE_DRIVER", &cfg.Database.Driver)
	str("CMS_DATABASE_DSN", &cfg.Database.DSN)
	str("CMS_DATABASE_PATH", &cfg.Database.Path)
	str("CMS_DATABASE_HOST", &cfg.Database.Host)
	num("CMS_DATABASE_PORT", &cfg.Database.Port)
	str("CMS_DATABASE_USER", &cfg.Database.User)
	str("CMS_DATABASE_PASSWORD", &cfg.Database.Password)
	str("CMS_DATABASE_NAME", &cfg.Database.Name)

	if v, ok := lookup("CMS_REDIS_URL"); ok && strings.TrimSpace(v) != "" {
		cfg.Redis.URL = strings.TrimSpace(v)
		cfg.Redis.Enable = true
	}
	flag("CMS_REDIS_ENABLE", &cfg.Redis.Enable)

	str("CMS_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("CMS_S3_BUCKET", &cfg.Storage.S3.Bucket)
	str("CMS_S3_REGION", &cfg.Storage.S3.Region)
	str("CMS_S3_ENDPOINT", &cfg.Storage.S3.Endpoint)
	str("CMS_S3_ACCESS_KEY_ID", &cfg.Storage.S3.AccessKeyID)
	str("CMS_S3_SECRET_ACCESS_KEY", &cfg.Storage.S3.SecretAccessKey)

	str("CMS_SEARCH_DRIVER", &cfg.Search.Driver)
	if v, ok := lookup("CMS_ELASTICSEARCH_ADDRESSES"); ok && strings.TrimSpace(v) != "" {
		cfg.Search.Elasticsearch.Addresses = normalizeOrigins(strings.Split(v, ","))
	}

	str("CMS_MAIL_HOST", &cfg.Mail.Host)
	str("CMS_MAIL_USER", &cfg.Mail.User)
	str("CMS_MAIL_PASS", &cfg.Mail.Pass)
	str("CMS_MAIL_FROM", &cfg.Mail.From)
	str("CMS_RESEND_KEY", &cfg.Mail.ResendKey)
	flag("CMS_MAIL_ENABLE", &cfg.Mail.Enable)

	str("CMS_SITE_URL", &cfg.Site.URL)
}
