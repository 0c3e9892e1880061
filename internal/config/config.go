package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		Name     string `yaml:"name"`
		Version  string `yaml:"version"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// Prefijo de GET {connect_path}/{service}. Default de los firewalls
		// sin connect_path propio.
		ConnectPath     string `yaml:"connect_path"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		// Confiar en X-Forwarded-Proto/-Host/-For. Solo detrás de un proxy
		// que los reescriba.
		TrustForwardedHeaders bool `yaml:"trust_forwarded_headers"`
	} `yaml:"server"`

	Session struct {
		// cookie | cache
		Store      string `yaml:"store"`
		CookieName string `yaml:"cookie_name"`
		Domain     string `yaml:"domain"`
		TTL        string `yaml:"ttl"`
		Secure     bool   `yaml:"secure"`
		// lax | strict | none
		SameSite string `yaml:"same_site"`
		// base64 o hex, >= 32 bytes. Deriva las claves de cookie y state.
		MasterKey string `yaml:"master_key"`
	} `yaml:"session"`

	Cache struct {
		// memory | redis
		Kind   string `yaml:"kind"`
		Prefix string `yaml:"prefix"`
		Redis  struct {
			Addr        string `yaml:"addr"`
			Password    string `yaml:"password"`
			DB          int    `yaml:"db"`
			DialTimeout string `yaml:"dial_timeout"`
		} `yaml:"redis"`
		Memory struct {
			CleanupInterval string `yaml:"cleanup_interval"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Security struct {
		// Parámetro del request con el destino post-login. Vacío = deshabilitado.
		TargetPathParameter        string           `yaml:"target_path_parameter"`
		UseReferer                 bool             `yaml:"use_referer"`
		FailedUseReferer           bool             `yaml:"failed_use_referer"`
		TargetPathDomainsWhitelist []string         `yaml:"target_path_domains_whitelist"`
		ForwardParameters          []string         `yaml:"forward_parameters"`
		Firewalls                  []FirewallConfig `yaml:"firewalls"`

		State struct {
			Issuer string `yaml:"issuer"`
			TTL    string `yaml:"ttl"`
		} `yaml:"state"`
	} `yaml:"security"`

	// ResourceOwners por nombre (facebook, google, corp_sso, ...).
	ResourceOwners map[string]ResourceOwnerConfig `yaml:"resource_owners"`
}

// FirewallConfig es una zona de autenticación independiente.
type FirewallConfig struct {
	Name string `yaml:"name"`
	// Regex sobre el path del request. Vacío matchea todo.
	Pattern string `yaml:"pattern"`
	// Prefijo de GET {connect_path}/{service} para este firewall; tiene que
	// resolver a este firewall. Default server.connect_path.
	ConnectPath string `yaml:"connect_path"`
	// Template con {service}. Default /login/check-{service}.
	CheckPath string `yaml:"check_path"`
	// Resource owners habilitados. Vacío = todos.
	ResourceOwners []string `yaml:"resource_owners"`
	// Check path explícito por resource owner.
	CheckPaths map[string]string `yaml:"check_paths"`
}

type ResourceOwnerConfig struct {
	// oauth2 | facebook | google | github | microsoft. Vacío = el nombre.
	Type             string            `yaml:"type"`
	ClientID         string            `yaml:"client_id"`
	ClientSecret     string            `yaml:"client_secret"`
	AuthorizationURL string            `yaml:"authorization_url"`
	TokenURL         string            `yaml:"token_url"`
	Scopes           []string          `yaml:"scopes"`
	Options          map[string]string `yaml:"options"`
}

const (
	SessionStoreCookie = "cookie"
	SessionStoreCache  = "cache"
)

// Load lee path (opcional), aplica defaults y overrides de entorno.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyEnvOverrides()
	c.setDefaults()
	return &c, nil
}

func (c *Config) setDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "oauthconnect"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ConnectPath == "" {
		c.Server.ConnectPath = "/connect"
	}
	c.Server.ConnectPath = normalizePath(c.Server.ConnectPath)
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "10s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "15s"
	}

	if c.Session.Store == "" {
		c.Session.Store = SessionStoreCookie
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "oauthconnect_session"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "1h"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "lax"
	}

	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "oauthconnect"
	}
	if c.Cache.Redis.DialTimeout == "" {
		c.Cache.Redis.DialTimeout = "5s"
	}
	if c.Cache.Memory.CleanupInterval == "" {
		c.Cache.Memory.CleanupInterval = "1m"
	}

	if c.Security.State.TTL == "" {
		c.Security.State.TTL = "10m"
	}
	if len(c.Security.Firewalls) == 0 {
		c.Security.Firewalls = []FirewallConfig{{Name: "main"}}
	}
	for i := range c.Security.Firewalls {
		fw := &c.Security.Firewalls[i]
		if fw.ConnectPath == "" {
			fw.ConnectPath = c.Server.ConnectPath
		}
		fw.ConnectPath = normalizePath(fw.ConnectPath)
	}
}

func normalizePath(p string) string {
	return "/" + strings.Trim(strings.TrimSpace(p), "/")
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("CONNECT_PATH"); ok {
		c.Server.ConnectPath = v
	}
	if v, ok := getEnvBool("TRUST_FORWARDED_HEADERS"); ok {
		c.Server.TrustForwardedHeaders = v
	}

	// SESSION
	if v, ok := getEnvStr("SESSION_STORE"); ok {
		c.Session.Store = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SESSION_MASTER_KEY"); ok {
		c.Session.MasterKey = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}

	// SECURITY
	if v, ok := os.LookupEnv("TARGET_PATH_PARAMETER"); ok {
		c.Security.TargetPathParameter = strings.TrimSpace(v)
	}
	if v, ok := getEnvBool("USE_REFERER"); ok {
		c.Security.UseReferer = v
	}
	if v, ok := getEnvBool("FAILED_USE_REFERER"); ok {
		c.Security.FailedUseReferer = v
	}
	if v, ok := getEnvCSV("TARGET_PATH_DOMAINS_WHITELIST"); ok {
		c.Security.TargetPathDomainsWhitelist = v
	}

	// RESOURCE OWNERS: OAUTH_<NAME>_CLIENT_ID / OAUTH_<NAME>_CLIENT_SECRET
	for name, ro := range c.ResourceOwners {
		prefix := "OAUTH_" + envName(name) + "_"
		if v, ok := getEnvStr(prefix + "CLIENT_ID"); ok {
			ro.ClientID = v
		}
		if v, ok := getEnvStr(prefix + "CLIENT_SECRET"); ok {
			ro.ClientSecret = v
		}
		c.ResourceOwners[name] = ro
	}
}

func envName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

// IsProd indica si corre en producción.
func (c *Config) IsProd() bool {
	return c.App.Env == "prod" || c.App.Env == "production"
}

// ResourceOwnerNames devuelve los nombres configurados, ordenados.
func (c *Config) ResourceOwnerNames() []string {
	out := make([]string, 0, len(c.ResourceOwners))
	for name := range c.ResourceOwners {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// OwnersFor devuelve los resource owners habilitados en el firewall.
func (c *Config) OwnersFor(fw FirewallConfig) []string {
	if len(fw.ResourceOwners) == 0 {
		return c.ResourceOwnerNames()
	}
	return fw.ResourceOwners
}

// ConnectPaths devuelve los prefijos de connect distintos, en el orden de
// los firewalls.
func (c *Config) ConnectPaths() []string {
	seen := map[string]bool{}
	var out []string
	for _, fw := range c.Security.Firewalls {
		if fw.ConnectPath == "" || seen[fw.ConnectPath] {
			continue
		}
		seen[fw.ConnectPath] = true
		out = append(out, fw.ConnectPath)
	}
	if len(out) == 0 {
		out = append(out, c.Server.ConnectPath)
	}
	return out
}

// Duration parsea un campo de duración ya validado.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// Validate verifica los valores críticos. Llamar después de Load.
func (c *Config) Validate() error {
	var errs []error

	for field, v := range map[string]string{
		"server.read_timeout":           c.Server.ReadTimeout,
		"server.write_timeout":          c.Server.WriteTimeout,
		"server.shutdown_timeout":       c.Server.ShutdownTimeout,
		"session.ttl":                   c.Session.TTL,
		"cache.redis.dial_timeout":      c.Cache.Redis.DialTimeout,
		"cache.memory.cleanup_interval": c.Cache.Memory.CleanupInterval,
		"security.state.ttl":            c.Security.State.TTL,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", field, v))
		}
	}

	switch c.Session.Store {
	case SessionStoreCookie, SessionStoreCache:
	default:
		errs = append(errs, fmt.Errorf("session.store: must be cookie or cache, got %q", c.Session.Store))
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.kind: must be memory or redis, got %q", c.Cache.Kind))
	}
	if c.IsProd() && strings.TrimSpace(c.Session.MasterKey) == "" {
		errs = append(errs, errors.New("session.master_key: required in prod (SESSION_MASTER_KEY)"))
	}

	seen := map[string]bool{}
	for i, fw := range c.Security.Firewalls {
		if fw.Name == "" {
			errs = append(errs, fmt.Errorf("security.firewalls[%d]: name required", i))
			continue
		}
		if seen[fw.Name] {
			errs = append(errs, fmt.Errorf("security.firewalls[%d]: duplicate name %q", i, fw.Name))
		}
		seen[fw.Name] = true
		for _, ro := range fw.ResourceOwners {
			if _, ok := c.ResourceOwners[ro]; !ok {
				errs = append(errs, fmt.Errorf("security.firewalls[%s]: unknown resource owner %q", fw.Name, ro))
			}
		}
	}

	return errors.Join(errs...)
}
