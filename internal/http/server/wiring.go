// Package server construye el servicio a partir de la configuración y
// maneja su ciclo de vida.
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/oauthconnect/internal/cache"
	"github.com/dropDatabas3/oauthconnect/internal/config"
	connectctrl "github.com/dropDatabas3/oauthconnect/internal/http/controllers/connect"
	healthctrl "github.com/dropDatabas3/oauthconnect/internal/http/controllers/health"
	"github.com/dropDatabas3/oauthconnect/internal/http/metrics"
	"github.com/dropDatabas3/oauthconnect/internal/http/router"
	connectsvc "github.com/dropDatabas3/oauthconnect/internal/http/services/connect"
	"github.com/dropDatabas3/oauthconnect/internal/observability/logger"
	"github.com/dropDatabas3/oauthconnect/internal/providers"
	"github.com/dropDatabas3/oauthconnect/internal/providers/facebook"
	"github.com/dropDatabas3/oauthconnect/internal/providers/github"
	"github.com/dropDatabas3/oauthconnect/internal/providers/google"
	"github.com/dropDatabas3/oauthconnect/internal/providers/microsoft"
	"github.com/dropDatabas3/oauthconnect/internal/security/firewall"
	"github.com/dropDatabas3/oauthconnect/internal/security/keys"
	"github.com/dropDatabas3/oauthconnect/internal/security/oauthutil"
	"github.com/dropDatabas3/oauthconnect/internal/security/ownermap"
	"github.com/dropDatabas3/oauthconnect/internal/security/state"
	"github.com/dropDatabas3/oauthconnect/internal/security/whitelist"
	"github.com/dropDatabas3/oauthconnect/internal/session"
)

// Security agrupa los registros inmutables armados desde la configuración.
type Security struct {
	Firewalls *firewall.Map
	Locator   *ownermap.Locator
	Maps      map[string]*ownermap.Map
	Whitelist *whitelist.DomainWhitelist
	Utils     *oauthutil.Utils
}

// NewRegistry devuelve el registry con todos los presets de proveedor.
func NewRegistry() *providers.Registry {
	r := providers.NewRegistry()
	r.Register(facebook.ProviderName, facebook.Factory)
	r.Register(google.ProviderName, google.Factory)
	r.Register(github.ProviderName, github.Factory)
	r.Register(microsoft.ProviderName, microsoft.Factory)
	return r
}

// BuildSecurity arma firewalls, mapas de resource owners y whitelist. gen
// firma el state de cada proveedor; nil usa state aleatorio.
func BuildSecurity(cfg *config.Config, gen providers.StateGenerator) (*Security, error) {
	registry := NewRegistry()

	owners := make(map[string]providers.ResourceOwner, len(cfg.ResourceOwners))
	for _, name := range cfg.ResourceOwnerNames() {
		ro := cfg.ResourceOwners[name]
		owner, err := registry.New(providers.Config{
			Name:             name,
			Type:             ro.Type,
			ClientID:         ro.ClientID,
			ClientSecret:     ro.ClientSecret,
			AuthorizationURL: ro.AuthorizationURL,
			TokenURL:         ro.TokenURL,
			Scopes:           ro.Scopes,
			Options:          ro.Options,
			State:            gen,
		})
		if err != nil {
			return nil, err
		}
		owners[name] = owner
	}

	fwList := make([]firewall.Firewall, 0, len(cfg.Security.Firewalls))
	for _, fw := range cfg.Security.Firewalls {
		fwList = append(fwList, firewall.Firewall{Name: fw.Name, Pattern: fw.Pattern, CheckPath: fw.CheckPath})
	}
	fws, err := firewall.NewMap(fwList...)
	if err != nil {
		return nil, err
	}
	// Cada connect_path tiene que caer en su propio firewall.
	for _, fw := range cfg.Security.Firewalls {
		if fw.ConnectPath == "" {
			continue
		}
		got, ok := fws.Match(strings.TrimRight(fw.ConnectPath, "/") + "/" + firewall.ServicePlaceholder)
		if !ok || got.Name != fw.Name {
			return nil, fmt.Errorf("firewall %s: connect_path %q resolves to firewall %q", fw.Name, fw.ConnectPath, got.Name)
		}
	}

	builder := ownermap.NewLocatorBuilder()
	maps := make(map[string]*ownermap.Map, len(cfg.Security.Firewalls))
	for _, fw := range cfg.Security.Firewalls {
		names := cfg.OwnersFor(fw)
		list := make([]providers.ResourceOwner, 0, len(names))
		for _, n := range names {
			o, ok := owners[n]
			if !ok {
				return nil, fmt.Errorf("firewall %s: unknown resource owner %q", fw.Name, n)
			}
			list = append(list, o)
		}
		m, err := ownermap.NewMap(fw.Name, fw.CheckPath, list, fw.CheckPaths)
		if err != nil {
			return nil, err
		}
		maps[fw.Name] = m
		builder.Set(fw.Name, m)
	}
	locator := builder.Build()

	return &Security{
		Firewalls: fws,
		Locator:   locator,
		Maps:      maps,
		Whitelist: whitelist.New(cfg.Security.TargetPathDomainsWhitelist),
		Utils:     oauthutil.New(fws, locator),
	}, nil
}

// App es el servicio armado, listo para Run.
type App struct {
	cfg     *config.Config
	handler http.Handler
	cache   cache.Client
}

// Handler expone el http.Handler (tests).
func (a *App) Handler() http.Handler { return a.handler }

// Close libera los recursos del wiring.
func (a *App) Close() error {
	return a.cache.Close()
}

// Build arma todas las dependencias del servicio.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.L().With(logger.Component("wiring"))

	master, err := masterKey(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Session.MasterKey == "" {
		log.Warn("session.master_key not set, using an ephemeral key (sessions and states will not survive restarts)")
	}

	cc, err := cache.New(ctx, cache.Config{
		Driver: cfg.Cache.Kind,
		Prefix: cfg.Cache.Prefix,
		Redis: cache.RedisConfig{
			Addr:        cfg.Cache.Redis.Addr,
			Password:    cfg.Cache.Redis.Password,
			DB:          cfg.Cache.Redis.DB,
			DialTimeout: config.Duration(cfg.Cache.Redis.DialTimeout),
		},
		CleanupInterval: config.Duration(cfg.Cache.Memory.CleanupInterval),
	})
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			_ = cc.Close()
		}
	}()

	signer, err := newSigner(cfg, master)
	if err != nil {
		return nil, err
	}

	sec, err := BuildSecurity(cfg, signer)
	if err != nil {
		return nil, err
	}

	store, err := sessionStore(cfg, master, cc)
	if err != nil {
		return nil, err
	}

	m, err := metrics.New()
	if err != nil {
		return nil, err
	}

	svc := connectsvc.NewService(connectsvc.Deps{
		Resolver:  sec.Utils,
		Whitelist: sec.Whitelist,
		Options: connectsvc.Options{
			TargetPathParameter:   cfg.Security.TargetPathParameter,
			UseReferer:            cfg.Security.UseReferer,
			FailedUseReferer:      cfg.Security.FailedUseReferer,
			ForwardParameters:     cfg.Security.ForwardParameters,
			TrustForwardedHeaders: cfg.Server.TrustForwardedHeaders,
		},
		Metrics: m,
	})

	h := router.New(router.Deps{
		ConnectPaths:          cfg.ConnectPaths(),
		TrustForwardedHeaders: cfg.Server.TrustForwardedHeaders,
		Connect:               connectctrl.NewController(svc, store),
		Health:                healthctrl.NewHealthController(cfg.App.Version, map[string]healthctrl.Pinger{"cache": cc}),
		Metrics:               m,
	})

	log.Info("wiring completed",
		logger.Strings("firewalls", sec.Firewalls.Names()),
		logger.Strings("connect_paths", cfg.ConnectPaths()),
		logger.Strings("resource_owners", cfg.ResourceOwnerNames()),
		logger.String("session_store", cfg.Session.Store),
		logger.String("cache", cfg.Cache.Kind),
	)

	ok = true
	return &App{cfg: cfg, handler: h, cache: cc}, nil
}

// StateSigner arma el firmante de state con la master key configurada, para
// verificar fuera del servidor los state que emitió.
func StateSigner(cfg *config.Config) (*state.Signer, error) {
	if cfg.Session.MasterKey == "" {
		return nil, errors.New("session.master_key: required to verify state (SESSION_MASTER_KEY)")
	}
	master, err := keys.ParseMasterKey(cfg.Session.MasterKey)
	if err != nil {
		return nil, err
	}
	return newSigner(cfg, master)
}

func newSigner(cfg *config.Config, master []byte) (*state.Signer, error) {
	stateKey, err := keys.Derive(master, keys.PurposeState, 32)
	if err != nil {
		return nil, err
	}
	return state.NewSigner(state.Config{
		Key:    stateKey,
		Issuer: cfg.Security.State.Issuer,
		TTL:    config.Duration(cfg.Security.State.TTL),
	})
}

func masterKey(cfg *config.Config) ([]byte, error) {
	if cfg.Session.MasterKey != "" {
		return keys.ParseMasterKey(cfg.Session.MasterKey)
	}
	k := make([]byte, keys.MinMasterKeyLength)
	if _, err := rand.Read(k); err != nil {
		return nil, err
	}
	return k, nil
}

func sessionStore(cfg *config.Config, master []byte, cc cache.Client) (session.Store, error) {
	cookie := session.CookieConfig{
		Name:     cfg.Session.CookieName,
		Domain:   cfg.Session.Domain,
		TTL:      config.Duration(cfg.Session.TTL),
		Secure:   cfg.Session.Secure,
		SameSite: session.ParseSameSite(cfg.Session.SameSite),
	}

	if cfg.Session.Store == config.SessionStoreCache {
		return session.NewCacheStore(cc, cookie), nil
	}

	hashKey, err := keys.Derive(master, keys.PurposeCookieHash, 32)
	if err != nil {
		return nil, err
	}
	blockKey, err := keys.Derive(master, keys.PurposeCookieKey, 32)
	if err != nil {
		return nil, err
	}
	return session.NewCookieStore(cookie, hashKey, blockKey), nil
}
