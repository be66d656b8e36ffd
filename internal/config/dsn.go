package config

import (
	"fmt"
	"net"
	neturl "net/url"
	"sort"
	"strconv"
	"strings"
)

// DSNValue returns the connection string for the configured driver.
// An explicit dsn always wins.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}
	switch c.Driver {
	case DriverMySQL:
		return c.mysqlDSN()
	case DriverPostgres:
		return c.postgresDSN()
	default:
		return c.sqliteDSN()
	}
}

func (c DatabaseRuntimeConfig) mysqlDSN() string {
	port := c.Port
	if port == 0 {
		port = defaultMySQLPort
	}

	params := neturl.Values{}
	for key, value := range c.Params {
		params.Set(key, value)
	}
	if params.Get("charset") == "" {
		params.Set("charset", c.Charset)
	}
	if params.Get("parseTime") == "" {
		params.Set("parseTime", strconv.FormatBool(c.ParseTime))
	}
	if params.Get("loc") == "" {
		params.Set("loc", c.Loc)
	}

	auth := ""
	if c.User != "" || c.Password != "" {
		auth = c.User
		if c.Password != "" {
			auth += ":" + c.Password
		}
		auth += "@"
	}

	dsn := fmt.Sprintf("%stcp(%s)/%s", auth, net.JoinHostPort(c.Host, strconv.Itoa(port)), c.Name)
	if query := params.Encode(); query != "" {
		dsn += "?" + query
	}
	return dsn
}

// postgresDSN builds a key=value string understood by lib/pq.
func (c DatabaseRuntimeConfig) postgresDSN() string {
	port := c.Port
	if port == 0 {
		port = defaultPGPort
	}
	parts := []string{
		"host=" + quotePGValue(c.Host),
		"port=" + strconv.Itoa(port),
		"dbname=" + quotePGValue(c.Name),
		"sslmode=" + quotePGValue(c.SSLMode),
	}
	if c.User != "" {
		parts = append(parts, "user="+quotePGValue(c.User))
	}
	if c.Password != "" {
		parts = append(parts, "password="+quotePGValue(c.Password))
	}

	keys := make([]string, 0, len(c.Params))
	for key := range c.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, key+"="+quotePGValue(c.Params[key]))
	}
	return strings.Join(parts, " ")
}

func (c DatabaseRuntimeConfig) sqliteDSN() string {
	path := c.Path
	if path == "" {
		path = defaultSQLitePath
	}
	params := neturl.Values{}
	for key, value := range c.Params {
		params.Set(key, value)
	}
	if params.Get("_foreign_keys") == "" {
		params.Set("_foreign_keys", "1")
	}
	if params.Get("_busy_timeout") == "" {
		params.Set("_busy_timeout", "5000")
	}
	return "file:" + path + "?" + params.Encode()
}

func quotePGValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (c RedisRuntimeConfig) URLValue() string {
	if u := normalizeRedisRawURL(c.URL); u != "" {
		return u
	}

	host := c.Host
	if host == "" {
		host = defaultRedisHost
	}
	port := c.Port
	if port == 0 {
		port = defaultRedisPort
	}
	db := c.DB
	if db < 0 {
		db = defaultRedisDB
	}

	scheme := "redis"
	if c.TLS {
		scheme = "rediss"
	}

	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + strconv.Itoa(db),
	}
	if c.Username != "" {
		if c.Password != "" {
			u.User = neturl.UserPassword(c.Username, c.Password)
		} else {
			u.User = neturl.User(c.Username)
		}
	} else if c.Password != "" {
		u.User = neturl.UserPassword("", c.Password)
	}

	if len(c.Params) > 0 {
		query := neturl.Values{}
		for key, value := range c.Params {
			query.Set(key, value)
		}
		u.RawQuery = query.Encode()
	}
	return u.String()
}
