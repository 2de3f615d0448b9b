package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/selfeval/selfeval/internal/auth"
	"github.com/selfeval/selfeval/internal/backend"
	"github.com/selfeval/selfeval/internal/logging"
	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/store"
)

// deps are the services shared by the commands that talk to the backend.
type deps struct {
	store   *store.Store
	log     zerolog.Logger
	session *auth.Session // nil when offline
	client  backend.Client
	user    model.User

	logCloser io.Closer
}

// openDeps opens the store and the log, restores the login and builds the
// decorated backend client. With requireLogin set, a missing login is an
// error unless running offline.
func openDeps(ctx context.Context, requireLogin bool) (*deps, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, err
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(filepath.Dir(dbPath), "selfeval.log")
	}
	log, logCloser, err := logging.New(logPath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	d := &deps{store: st, log: log, logCloser: logCloser}

	var client backend.Client
	if cfg.Offline {
		client = backend.NewDemo()
		d.user = backend.DemoUser
		log.Info().Msg("using offline demo backend")
	} else {
		authClient, err := backend.NewAuthClient(cfg.APIURL, &http.Client{Timeout: cfg.Timeout})
		if err != nil {
			d.Close()
			return nil, err
		}
		d.session = auth.NewSession(st.KVRepo(), authClient, cfg.RefreshSkew)
		if err := d.session.Init(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("restore login: %w", err)
		}

		claims, ok := d.session.Claims()
		if requireLogin && !ok {
			d.Close()
			return nil, errors.New("not logged in; run `selfeval login` first")
		}
		if ok {
			d.user = model.User{ID: claims.Subject, Name: claims.Name, Email: claims.Email, Role: claims.Role}
		}

		hc := &http.Client{
			Transport: auth.NewTransport(d.session, nil),
			Timeout:   cfg.Timeout,
		}
		httpClient, err := backend.NewHTTPClient(cfg.APIURL, hc)
		if err != nil {
			d.Close()
			return nil, err
		}
		client = httpClient
	}

	d.client = backend.WithRetry(
		backend.WithLogging(client, st.EventRepo(), log),
		backend.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			InitialWait: cfg.Retry.InitialWait,
			MaxWait:     cfg.Retry.MaxWait,
			Multiplier:  cfg.Retry.Multiplier,
		},
	)
	return d, nil
}

// displayName is how the user is shown in the header and in messages.
func (d *deps) displayName() string {
	switch {
	case d.user.Name != "":
		return d.user.Name
	case d.user.Email != "":
		return d.user.Email
	}
	return d.user.ID
}

// Close releases the store and the log file.
func (d *deps) Close() {
	if err := d.store.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close store:", err)
	}
	d.logCloser.Close()
}
