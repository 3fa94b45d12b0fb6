package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/tama-audit/auditor/internal/common"
)

const rootMenu = `Commandes: login, register, logout, status, sync, cache, exit`

// Root is the REPL loop. It dispatches one command per line until "exit"
// or EOF.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, rootMenu)

	for {
		cmd, err := GetSimpleText(a.reader, "", a.out)
		if err != nil {
			if err == io.EOF {
				return
			}
			a.log.Error(ctx, "read command failed", "error", err)
			return
		}

		if !a.dispatch(ctx, cmd) {
			return
		}
	}
}

// dispatch runs one command; returns false when the REPL should stop.
func (a *App) dispatch(ctx context.Context, cmd string) bool {
	switch cmd {
	case "login":
		a.loginCmd(ctx)
	case "register":
		a.registerCmd(ctx)
	case "logout":
		a.logoutCmd(ctx)
	case "status":
		a.statusCmd()
	case "sync":
		a.syncCmd(ctx)
	case "cache":
		a.cacheCmd(ctx)
	case "exit":
		return false
	case "":
	default:
		fmt.Fprintf(a.out, "Commande inconnue: %s\n%s\n", cmd, rootMenu)
	}
	return true
}

func (a *App) statusCmd() {
	st := a.session.GetState()
	if !st.IsAuthenticated {
		fmt.Fprintln(a.out, "Aucune session active")
		return
	}
	fmt.Fprintf(a.out, "Utilisateur: %s (%s)\n", st.User.Name, st.User.Role)
	if a.session.IsTechnician() {
		fmt.Fprintln(a.out, "Accès technicien")
	}
}

// syncCmd queues the audit flush and probes connectivity immediately
// instead of waiting for the next watcher tick.
func (a *App) syncCmd(ctx context.Context) {
	a.coord.Schedule(common.SyncTagAuditData)
	a.watcher.Tick(ctx)
	if a.coord.Pending(common.SyncTagAuditData) {
		fmt.Fprintln(a.out, "Synchronisation en attente de connexion")
		return
	}
	fmt.Fprintln(a.out, "Synchronisation effectuée")
}

// cacheCmd installs the current generation and collects stale ones.
func (a *App) cacheCmd(ctx context.Context) {
	if err := a.cache.Install(ctx); err != nil {
		fmt.Fprintf(a.out, "Echec de la mise en cache: %v\n", err)
		return
	}
	if err := a.cache.Activate(ctx); err != nil {
		fmt.Fprintf(a.out, "Echec du nettoyage du cache: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Cache prêt (%s)\n", a.cache.Label())
}
