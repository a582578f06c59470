package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chetan-code/taskcal/internal/auth"
	"github.com/chetan-code/taskcal/internal/config"
	"github.com/chetan-code/taskcal/internal/handler"
	"github.com/chetan-code/taskcal/internal/repository"
	"github.com/chetan-code/taskcal/internal/service"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initDB(cfg *config.Config) *sql.DB {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := repository.Open(ctx, cfg.DBDriver, cfg.DBURL)
	if err != nil {
		slog.Error("database_initialization_failed", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}

	slog.Info("database_initialization_success", "driver", cfg.DBDriver)
	return db
}

/*
gothic keeps the oauth state in a short lived cookie and checks it on the
callback, so a sign-in can only be completed from the flow this app started.
*/
func setupGothic(cfg *config.Config) {
	goth.UseProviders(
		google.New(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL, "email", "profile"),
	)

	maxAge := 60 * 10 //the handshake only lasts a few minutes

	store := sessions.NewCookieStore(cfg.JWTSecret)
	store.MaxAge(maxAge)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.Production()

	gothic.Store = store
}

func setupSlog() {
	//Json handler that writes to standard out
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})
	slog.SetDefault(slog.New(handler))
}

func startServer(port string, h http.Handler) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_start", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server_start_failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		slog.Info("server_shutdown", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server_shutdown_failed", "error", err)
		}
	}
}

func main() {
	//structure logging
	setupSlog()

	cfg := loadConfig()

	db := initDB(cfg)
	defer db.Close()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		slog.Error("token_manager_creation_failed", "error", err)
		os.Exit(1)
	}
	authenticator, err := auth.NewAuthenticator(repository.NewUserRepo(db), tokens, cfg.BcryptCost)
	if err != nil {
		slog.Error("authenticator_creation_failed", "error", err)
		os.Exit(1)
	}

	if cfg.AdminEmail != "" {
		if err := authenticator.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Error("admin_seed_failed", "error", err)
			os.Exit(1)
		}
	}

	//athentication with google is optional
	if cfg.Google.Enabled() {
		setupGothic(cfg)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Authenticator: authenticator,
		Tokens:        tokens,
		Tasks:         service.NewTaskService(repository.NewTaskRepo(db)),
		CORSOrigins:   cfg.CORSOrigins,
		GoogleEnabled: cfg.Google.Enabled(),
	})

	startServer(cfg.Port, router)
}
