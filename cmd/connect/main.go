package main

import (
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/oauthconnect/internal/config"
	"github.com/dropDatabas3/oauthconnect/internal/http/server"
	"github.com/dropDatabas3/oauthconnect/internal/observability/logger"
	"github.com/dropDatabas3/oauthconnect/internal/security/whitelist"
)

// version se setea con -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		envFile    = ".env"
	)

	loadConfig := func() (*config.Config, error) {
		// .env es opcional: las variables del sistema siguen funcionando.
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
		// CONFIG_PATH se lee después del .env para que también pueda venir de ahí.
		path := configPath
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		if cfg.App.Version == "" {
			cfg.App.Version = version
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config:\n%w", err)
		}
		return cfg, nil
	}

	root := &cobra.Command{
		Use:           "oauthconnect",
		Short:         "Redirect a usuarios hacia proveedores OAuth con destino post-login validado",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "archivo YAML de configuración (env CONFIG_PATH)")
	root.PersistentFlags().StringVar(&envFile, "env-file", envFile, "archivo .env opcional")

	root.AddCommand(
		newServeCmd(loadConfig),
		newCheckTargetCmd(loadConfig),
		newFirewallsCmd(loadConfig),
		newInspectCallbackCmd(loadConfig),
	)
	return root
}

type configLoader func() (*config.Config, error)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.App.LogLevel,
				ServiceName: cfg.App.Name,
				Version:     cfg.App.Version,
			})
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := server.Build(ctx, cfg)
			if err != nil {
				logger.L().Error("wiring failed", logger.Err(err))
				return err
			}
			return app.Run(ctx)
		},
	}
}

func newCheckTargetCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "check-target <url>...",
		Short: "Evalúa destinos post-login contra target_path_domains_whitelist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			wl := whitelist.New(cfg.Security.TargetPathDomainsWhitelist)

			rejected := 0
			out := cmd.OutOrStdout()
			for _, target := range args {
				verdict := "allowed"
				if !wl.IsWhitelisted(target) {
					verdict = "DENIED"
					rejected++
				}
				fmt.Fprintf(out, "%-8s %s\n", verdict, target)
			}
			if rejected > 0 {
				return fmt.Errorf("%d target(s) not allowed", rejected)
			}
			return nil
		},
	}
}

func newFirewallsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "firewalls",
		Short: "Lista firewalls, connect paths, resource owners y check paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			sec, err := server.BuildSecurity(cfg, nil)
			if err != nil {
				return err
			}
			connectPaths := make(map[string]string, len(cfg.Security.Firewalls))
			for _, fw := range cfg.Security.Firewalls {
				connectPaths[fw.Name] = fw.ConnectPath
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIREWALL\tPATTERN\tCONNECT PATH\tSERVICE\tCHECK PATH")
			for _, name := range sec.Locator.Firewalls() {
				fw, _ := sec.Firewalls.Get(name)
				pattern := fw.Pattern
				if pattern == "" {
					pattern = "(any)"
				}
				prefix := fmt.Sprintf("%s\t%s\t%s/{service}", name, pattern, connectPaths[name])

				owners := sec.Maps[name].Names()
				if len(owners) == 0 {
					fmt.Fprintf(tw, "%s\t-\t-\n", prefix)
					continue
				}
				m, err := sec.Locator.Get(name)
				if err != nil {
					return err
				}
				for _, owner := range owners {
					cp, _ := m.ResourceOwnerCheckPath(owner)
					fmt.Fprintf(tw, "%s\t%s\t%s\n", prefix, owner, cp)
				}
			}
			fmt.Fprintf(tw, "\nwhitelist: %s\n", strings.Join(sec.Whitelist.Domains(), ", "))
			return tw.Flush()
		},
	}
}

func newInspectCallbackCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect-callback <url>",
		Short: "Resuelve firewall y resource owner de una URL de callback y verifica su state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			u, err := url.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid url: %w", err)
			}
			sec, err := server.BuildSecurity(cfg, nil)
			if err != nil {
				return err
			}

			fw, ok := sec.Firewalls.Match(u.Path)
			if !ok {
				return fmt.Errorf("no firewall matches %s", u.Path)
			}
			owner, name, ok := sec.Maps[fw.Name].ResourceOwnerByCheckPath(u.Path)
			if !ok {
				return fmt.Errorf("%s is not a check path of firewall %s", u.Path, fw.Name)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "firewall: %s\nservice:  %s\n", fw.Name, owner.Name())

			token := u.Query().Get("state")
			if token == "" {
				fmt.Fprintln(out, "state:    (none)")
				return nil
			}
			signer, err := server.StateSigner(cfg)
			if err != nil {
				return err
			}
			claims, err := signer.Verify(token, name)
			if err != nil {
				fmt.Fprintf(out, "state:    INVALID (%v)\n", err)
				return err
			}
			fmt.Fprintf(out, "state:    valid, redirect_uri=%s, expires=%s\n",
				claims.RedirectURI, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
			return nil
		},
	}
}
