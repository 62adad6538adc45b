package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/wellnest/internal/config"
	"github.com/rpggio/wellnest/internal/domain/activity"
	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/rpggio/wellnest/internal/domain/autosave"
	"github.com/rpggio/wellnest/internal/domain/record"
	"github.com/rpggio/wellnest/internal/identity"
	"github.com/rpggio/wellnest/internal/mcp"
	"github.com/rpggio/wellnest/internal/notify"
	"github.com/rpggio/wellnest/internal/sqlite"
	"github.com/rpggio/wellnest/internal/transport"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := newLogger(cfg)
	defer closeLog()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ensureDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return err
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("no JWT secret configured; tokens will not survive a restart")
	}

	var oauth *identity.OAuth
	if cfg.OAuth.Google.Enabled() {
		redirect := cfg.OAuth.Google.RedirectURL
		if redirect == "" {
			redirect = fmt.Sprintf("http://localhost:%d/auth/google/callback", cfg.Server.Port)
		}
		oauth = identity.NewOAuth(cfg.OAuth.StateTTL,
			identity.GoogleProvider(cfg.OAuth.Google.ClientID, cfg.OAuth.Google.ClientSecret, redirect))
	}

	var mailer identity.Mailer = identity.NewLogMailer(logger)
	if cfg.SMTP.Enabled() {
		mailer = identity.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)
	}

	idp := identity.NewService(
		sqlite.NewUserRepository(db),
		sqlite.NewTokenRepository(db),
		identity.NewTokenIssuer(secret, cfg.Auth.Issuer, cfg.Auth.Audience),
		oauth,
		mailer,
		identity.Config{
			AccessTTL:   cfg.Auth.AccessTTL,
			RefreshTTL:  cfg.Auth.RefreshTTL,
			RecoveryTTL: cfg.Auth.RecoveryTTL,
			SiteURL:     cfg.Server.PublicURL,
			RecoveryURL: cfg.Auth.RecoveryURL,
		},
		logger,
	)

	prefs := sqlite.NewPreferenceRepository(db)
	feed := notify.NewFeed(0, logger)
	session := auth.NewSession(identity.NewClient(idp, prefs, logger), prefs, feed, logger)
	if err := session.Start(ctx); err != nil {
		// Unresolved sessions start signed out.
		logger.Warn("auth session not restored", "error", err)
	}
	defer session.Close()

	activityRepo := sqlite.NewActivityRepository(db)
	records := record.NewService(sqlite.NewRecordRepository(db), activityRepo, logger)
	activities := activity.NewService(activityRepo, logger)

	workspace := mcp.NewWorkspace(records, session, feed, autosave.Options{
		Quiescence:   cfg.Autosave.Quiescence,
		FlushTimeout: cfg.Autosave.FlushTimeout,
	}, logger)
	defer workspace.Close()

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Auth:          session,
			Records:       records,
			Activity:      activities,
			Notifications: feed,
			Workspace:     workspace,
		},
		Logger: logger,
	})

	httpOpts := transport.Options{
		Records:  records,
		Resolver: idp,
		Logger:   logger,
	}
	if oauth != nil {
		httpOpts.OAuth = idp
	}
	if cfg.Transport.Mode == "http" {
		httpOpts.MCP = sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
		)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           transport.NewServer(httpOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", "addr", addr, "transport", cfg.Transport.Mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.Transport.Mode == "stdio" {
		g.Go(func() error {
			// Run returns when stdin closes; that ends the process too.
			defer stop()
			if err := mcpServer.Run(gctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("stdio server: %w", err)
			}
			return nil
		})
	}

	if cfg.Auth.PurgeInterval > 0 {
		g.Go(func() error {
			purgeRevoked(gctx, idp, cfg.Auth.PurgeInterval, logger)
			return nil
		})
	}

	return g.Wait()
}

func purgeRevoked(ctx context.Context, idp *identity.Service, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := idp.PurgeRevoked(ctx)
			if err != nil {
				logger.Warn("purge revoked tokens failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("purged revoked tokens", "count", n)
			}
		}
	}
}

// newLogger writes to stdout, or stderr in stdio mode to keep stdout clean
// for JSON-RPC. A configured log path takes precedence and is rotated.
func newLogger(cfg config.Config) (*slog.Logger, func()) {
	var w io.Writer = os.Stdout
	if cfg.Transport.Mode == "stdio" {
		w = os.Stderr
	}
	closeFn := func() {}
	if cfg.Log.Path != "" {
		if err := ensureDir(cfg.Log.Path); err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			rotator := &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    6,
				MaxBackups: 3,
				MaxAge:     28,
			}
			w = rotator
			closeFn = func() { _ = rotator.Close() }
		}
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	return logger, closeFn
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
