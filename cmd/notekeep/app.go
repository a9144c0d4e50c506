package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kuitang/notekeep/internal/backup"
	"github.com/kuitang/notekeep/internal/config"
	"github.com/kuitang/notekeep/internal/crypto"
	"github.com/kuitang/notekeep/internal/errs"
	"github.com/kuitang/notekeep/internal/identity"
	"github.com/kuitang/notekeep/internal/kvstore"
	"github.com/kuitang/notekeep/internal/obs"
	"github.com/kuitang/notekeep/internal/s3client"
	"github.com/kuitang/notekeep/internal/session"
	"github.com/kuitang/notekeep/internal/workspace"
)

const (
	storeKeySubject = "kv"
	storeKeyVersion = 1
	fakeBucketName  = "notekeep-local"
)

// app is everything one command invocation needs.
type app struct {
	cfg     *config.Config
	ws      *workspace.Workspace
	cmd     *cobra.Command
	closers []func() error
}

func openApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	ctx := cmd.Context()
	cfg, err := config.LoadConfig(config.Flags{
		ConfigPath: opts.configPath,
		DataDir:    opts.dataDir,
		LogLevel:   opts.logLevel,
		NoS3:       opts.noS3,
		Memory:     opts.memory,
	})
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, err.Error(), err)
	}

	level := obs.ParseLevel(cfg.LogLevel)
	if opts.verbose {
		level = slog.LevelDebug
	}
	obs.Init(level)
	cfg.LogSummary(obs.Pkg("config"))

	a := &app{cfg: cfg, cmd: cmd}
	masterKey, err := cfg.MasterKeyBytes()
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "invalid master key", err)
	}

	store, err := a.openStore(masterKey)
	if err != nil {
		return nil, err
	}

	wsCfg := workspace.Config{
		Store:    store,
		Resolver: &discoveringResolver{issuer: cfg.OIDCIssuer, userInfoURL: cfg.OIDCUserInfoURL},
	}
	if cfg.EnableRemoteBackup {
		remote, err := a.openRemote(ctx, masterKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		wsCfg.Remote = remote
	}

	a.ws = workspace.Start(wsCfg)
	return a, nil
}

func (a *app) openStore(masterKey []byte) (kvstore.Store, error) {
	if a.cfg.StoreBackend == config.StoreMemory {
		return kvstore.NewMemory(), nil
	}
	if err := os.MkdirAll(a.cfg.DataDir, 0o700); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "could not create data directory", err)
	}

	var key []byte
	if masterKey != nil {
		key = crypto.DeriveKey(masterKey, crypto.PurposeLocalStore, storeKeySubject, storeKeyVersion)
	}
	store, err := kvstore.OpenSQLite(filepath.Join(a.cfg.DataDir, kvstore.DefaultFileName), key)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "could not open local store", err)
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *app) openRemote(ctx context.Context, masterKey []byte) (*backup.Adapter, error) {
	var client *s3client.Client
	if a.cfg.NoS3 {
		fake, stop, err := s3client.NewFake(ctx, fakeBucketName)
		if err != nil {
			return nil, errs.Wrap(errs.Unavailable, "could not start in-memory S3", err)
		}
		a.closers = append(a.closers, func() error { stop(); return nil })
		client = fake
	} else {
		c, err := s3client.New(ctx, s3client.Config{
			Endpoint:        a.cfg.AWSEndpointS3,
			Region:          a.cfg.AWSRegion,
			AccessKeyID:     a.cfg.AWSAccessKeyID,
			SecretAccessKey: a.cfg.AWSSecretAccessKey,
			BucketName:      a.cfg.AWSBucketName,
			UsePathStyle:    a.cfg.AWSEndpointS3 != "",
		})
		if err != nil {
			return nil, errs.Wrap(errs.Unavailable, "could not configure S3", err)
		}
		client = c
	}

	opts := []backup.Option{
		backup.WithPrefix(a.cfg.BackupPrefix),
		backup.WithPushInterval(a.cfg.BackupPushInterval),
	}
	if masterKey != nil {
		opts = append(opts, backup.WithEncryption(masterKey))
	}
	return backup.NewAdapter(backup.NewS3Store(client), opts...), nil
}

// session returns the current session with notices printed to stderr.
func (a *app) session() *session.Session {
	s := a.ws.Current()
	s.Subscribe(func(ev session.Event) {
		if ev.Kind != session.Notice {
			return
		}
		if ev.Err != nil {
			fmt.Fprintf(a.cmd.ErrOrStderr(), "Notice: %s (%v)\n", ev.Message, ev.Err)
			return
		}
		fmt.Fprintf(a.cmd.ErrOrStderr(), "Notice: %s\n", ev.Message)
	})
	return s
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			obs.Pkg("main").Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(a *app) error) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// discoveringResolver runs OIDC discovery on first use so commands that
// never sign in make no network calls.
type discoveringResolver struct {
	issuer      string
	userInfoURL string
	resolver    *identity.UserInfoResolver
}

func (d *discoveringResolver) Resolve(ctx context.Context, accessToken string) (*identity.Identity, error) {
	if d.resolver == nil {
		if d.userInfoURL != "" {
			d.resolver = identity.NewUserInfoResolverForURL(ctx, d.issuer, d.userInfoURL)
		} else {
			r, err := identity.NewUserInfoResolver(ctx, d.issuer)
			if err != nil {
				return nil, errs.Wrap(errs.Unavailable, "identity provider unavailable", err)
			}
			d.resolver = r
		}
	}
	return d.resolver.Resolve(ctx, accessToken)
}
