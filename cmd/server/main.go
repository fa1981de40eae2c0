// Command pilotgw runs the chat completion gateway.
//
// The server bridges OpenAI Chat Completions, OpenAI Responses, and
// Anthropic Messages callers onto a single Copilot-style upstream.
// Configuration is layered: built-in defaults, an optional YAML file
// (--config or pilotgw.yaml in the working directory), and PILOTGW_*
// environment variables.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pilotgw/pilotgw/pkg/auth"
	"github.com/pilotgw/pilotgw/pkg/auth/apikey"
	jwtauth "github.com/pilotgw/pilotgw/pkg/auth/jwt"
	"github.com/pilotgw/pilotgw/pkg/auth/noop"
	"github.com/pilotgw/pilotgw/pkg/config"
	"github.com/pilotgw/pilotgw/pkg/gateway"
	"github.com/pilotgw/pilotgw/pkg/observability"
	"github.com/pilotgw/pilotgw/pkg/token"
	"github.com/pilotgw/pilotgw/pkg/transport"
	transporthttp "github.com/pilotgw/pilotgw/pkg/transport/http"
	"github.com/pilotgw/pilotgw/pkg/upstream"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "pilotgw",
		Short:         "Multi-dialect chat completion gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	login := &cobra.Command{
		Use:   "login",
		Short: "Obtain a long-lived OAuth token via the device flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, configPath)
		},
	}
	root.AddCommand(login)

	return root
}

func runServe(configPath string) error {
	// A .env file is optional; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	gw := gateway.New(newUpstreamClient(cfg), gateway.Options{
		ModelMapping: cfg.Models.Mapping,
	})
	defer gw.Close()

	chain, err := buildAuthChain(cfg.Auth)
	if err != nil {
		return err
	}
	var limiter auth.RateLimiter
	if cfg.Auth.RateLimitRPM > 0 {
		limiter = auth.NewInProcessLimiter(cfg.Auth.RateLimitRPM)
	}

	adapter := transporthttp.NewAdapter(gw, transporthttp.DefaultConfig())
	if cfg.Observability.Metrics.Enabled {
		adapter.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	handler := transport.Chain(
		transport.Recovery(),
		transport.RequestID(),
		transport.CORS(),
		transport.Logging(logger),
		observability.MetricsMiddleware,
		auth.Middleware(chain, limiter, auth.DefaultBypassEndpoints),
	)(adapter.Handler())

	logger.Info("gateway configured",
		"port", cfg.Server.Port,
		"auth", cfg.Auth.Type,
		"metrics", cfg.Observability.Metrics.Enabled,
		"model_aliases", len(cfg.Models.Mapping))

	srv := transporthttp.NewServer(handler, transporthttp.ServerConfig{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       logger,
	})
	return srv.ListenAndServe()
}

// runLogin drives the device-authorization flow and persists the resulting
// token in the hosts file, where the server's token chain will find it.
func runLogin(cmd *cobra.Command, configPath string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	hosts, err := hostsFile(cfg)
	if err != nil {
		return err
	}

	flow := token.NewDeviceFlow(func(userCode, verificationURI string) {
		fmt.Printf("Open %s and enter code: %s\n", verificationURI, userCode)
	})
	tok, err := flow.Authorize(cmd.Context())
	if err != nil {
		return err
	}
	if err := hosts.Save(tok); err != nil {
		return err
	}
	fmt.Printf("Token saved to %s\n", hosts.Path)
	return nil
}

// newUpstreamClient builds the upstream client with its token source chain:
// explicit configuration first, then the environment, then the hosts file.
func newUpstreamClient(cfg *config.Config) *upstream.Client {
	sources := token.Chain{
		token.Static(cfg.Token.OAuthToken),
		&token.EnvSource{},
	}
	if hosts, err := hostsFile(cfg); err == nil {
		sources = append(sources, hosts)
	} else {
		slog.Warn("hosts file unavailable", "error", err)
	}

	return upstream.NewClient(upstream.Config{
		ChatCompletionsURL:  cfg.Upstream.ChatCompletionsURL,
		ResponsesURL:        cfg.Upstream.ResponsesURL,
		ModelsURL:           cfg.Upstream.ModelsURL,
		TokenURL:            cfg.Upstream.TokenURL,
		UsageURL:            cfg.Upstream.UsageURL,
		EditorVersion:       cfg.Upstream.EditorVersion,
		EditorPluginVersion: cfg.Upstream.EditorPluginVersion,
		Timeout:             cfg.Upstream.Timeout,
		Retry: upstream.RetryConfig{
			MaxRetries: cfg.Upstream.Retry.MaxRetries,
			BaseDelay:  cfg.Upstream.Retry.BaseDelay,
			MaxDelay:   cfg.Upstream.Retry.MaxDelay,
		},
	}, sources)
}

func hostsFile(cfg *config.Config) (*token.HostsFile, error) {
	if cfg.Token.HostsPath != "" {
		return &token.HostsFile{Path: cfg.Token.HostsPath}, nil
	}
	return token.NewHostsFile()
}

// buildAuthChain maps the auth config onto an authenticator chain. With
// authentication enabled, a request no authenticator claims is rejected.
func buildAuthChain(cfg config.AuthConfig) (*auth.AuthChain, error) {
	switch cfg.Type {
	case "", "none":
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Yes,
		}, nil
	case "apikey":
		entries := make([]apikey.Entry, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			entries = append(entries, apikey.Entry{Key: k.Key, Subject: k.Subject})
		}
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}, nil
	case "jwt":
		return &auth.AuthChain{
			Authenticators: []auth.Authenticator{jwtauth.New(jwtauth.Config{
				Secret: cfg.JWTSecret,
			})},
			DefaultDecision: auth.No,
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
