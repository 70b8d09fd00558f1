package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-learner-session/auth"
	"github.com/jrsteele09/go-learner-session/authctx"
	"github.com/jrsteele09/go-learner-session/authenticator"
	"github.com/jrsteele09/go-learner-session/credstore/sqlitestore"
	"github.com/jrsteele09/go-learner-session/guard"
	"github.com/jrsteele09/go-learner-session/identity"
	"github.com/jrsteele09/go-learner-session/identity/kratosprovider"
	"github.com/jrsteele09/go-learner-session/identity/oidcprovider"
	"github.com/jrsteele09/go-learner-session/identity/providerfake"
	"github.com/jrsteele09/go-learner-session/internal/config"
	apperrors "github.com/jrsteele09/go-learner-session/internal/errors"
	"github.com/jrsteele09/go-learner-session/navigation"
	"github.com/jrsteele09/go-learner-session/profile"
	"github.com/jrsteele09/go-learner-session/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := newProvider(ctx, c)
	if err != nil {
		return err
	}
	identityClient, err := identity.NewClient(provider)
	if err != nil {
		return err
	}

	store, err := sqlitestore.OpenInFolder(c.GetDataFolder())
	if err != nil {
		return fmt.Errorf("sqlitestore.OpenInFolder: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close credential store")
		}
	}()

	session := authctx.New(identityClient)
	queue := navigation.NewQueue()
	sessionGuard := guard.New(queue)
	sessionGuard.Attach(session)
	defer sessionGuard.Detach()

	transport := authenticator.New(identityClient,
		authenticator.WithTenant(c.GetTenantName(), c.GetTenantAPIKey()),
		authenticator.WithAliasStore(store, session),
	)
	httpClient := transport.Client()
	httpClient.Timeout = c.GetHTTPTimeout()
	profiles := profile.NewClient(httpClient, c.GetTenantName(), c.GetAliasURL(), c.GetProfileURL())

	service, err := auth.NewService(auth.Dependencies{
		Identity:  identityClient,
		Session:   session,
		Store:     store,
		Profiles:  profiles,
		Navigator: queue,
	})
	if err != nil {
		return err
	}

	handler, err := server.New(c, server.Dependencies{
		Auth:       service,
		Session:    session,
		Guard:      sessionGuard,
		Navigation: queue,
	})
	if err != nil {
		return err
	}
	defer handler.Close()

	go resumeSession(ctx, session)

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	return shutdown(httpServer)
}

func newProvider(ctx context.Context, c config.Config) (identity.Provider, error) {
	switch c.GetProviderKind() {
	case config.ProviderKratos:
		return kratosprovider.New(c.GetKratosPublicURL(), c.GetHTTPTimeout())
	case config.ProviderOIDC:
		return oidcprovider.New(ctx, oidcprovider.Settings{
			Issuer:       c.GetOIDCIssuer(),
			ClientID:     c.GetOIDCClientID(),
			ClientSecret: c.GetOIDCClientSecret(),
			SignUpURL:    c.GetOIDCSignUpURL(),
			Timeout:      c.GetHTTPTimeout(),
		})
	case config.ProviderFake:
		log.Warn().Msg("using the in-memory identity provider")
		return providerfake.New(), nil
	}
	return nil, apperrors.Wrapf(apperrors.ErrUnknownProvider, "provider %q", c.GetProviderKind())
}

// resumeSession restores a session left by a previous run.
func resumeSession(ctx context.Context, session *authctx.AuthContext) {
	if err := session.Resume(ctx); err != nil {
		log.Warn().Err(err).Msg("session resume did not complete")
		return
	}
	if snapshot := session.Snapshot(); snapshot.User != nil {
		log.Info().Str("user_id", snapshot.User.UserID).Msg("session resumed")
	}
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
