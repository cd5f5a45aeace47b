// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"envmod-cli/internal/config"
	"envmod-cli/internal/repository"
	"envmod-cli/internal/rootresolve"
	"envmod-cli/internal/session"
	"envmod-cli/pkg/moddesc"
)

// app wires the collaborators for one CLI invocation: configuration,
// descriptor repository (cache-backed), root resolver and the restored
// session.
type app struct {
	cfg         *config.Config
	repo        *repository.Repository
	resolver    *rootresolve.Resolver
	sess        *session.Session
	sessionFile string
}

// newApp builds the collaborators. The repository starts from the persisted
// descriptor cache so routine invocations skip the filesystem scan.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	newLogger := func(prefix string) *log.Logger {
		return log.NewWithOptions(os.Stderr, log.Options{Prefix: prefix, Level: level})
	}

	roots, err := cfg.EffectiveModuleRoots()
	if err != nil {
		return nil, err
	}
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	repo := repository.New(roots,
		repository.WithLogger(newLogger("repository")),
		repository.WithStore(repository.NewStore(filepath.Join(cfgDir, "cache.toml"))))
	if err := repo.LoadCache(); err != nil {
		return nil, fmt.Errorf("failed to build descriptor index: %w", err)
	}

	registryFile, err := cfg.EffectiveRegistryFile()
	if err != nil {
		return nil, err
	}
	resolver := rootresolve.New(
		rootresolve.WithLogger(newLogger("rootresolve")),
		rootresolve.WithHandler(moddesc.SearchPathRegistry, &rootresolve.RegistryHandler{Path: registryFile}))

	sess := session.New(repo, resolver, cfg, session.WithLogger(newLogger("session")))
	sessionFile, err := cfg.EffectiveSessionFile()
	if err != nil {
		return nil, err
	}
	if err := sess.Restore(sessionFile); err != nil {
		return nil, fmt.Errorf("failed to restore session (see 'envmod explain session-state-corrupt'): %w", err)
	}

	return &app{
		cfg:         cfg,
		repo:        repo,
		resolver:    resolver,
		sess:        sess,
		sessionFile: sessionFile,
	}, nil
}

// saveSession persists the session for the next invocation.
func (a *app) saveSession() error {
	return a.sess.Save(a.sessionFile)
}

// fail prints the error in its actionable form and returns a bare
// ExitError so the error is not rendered a second time on the way out.
func fail(cmd *cobra.Command, err error) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	return &ExitError{Code: 1}
}
