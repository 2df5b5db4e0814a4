// Command crmctl is a CLI client for the CRM backend: authentication, lead
// and user management, and the conversion dashboard, all over the backend's
// REST API. The backend is the sole authority on roles; the local gate only
// shapes navigation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crmdesk/crmctl/internal/api"
	"github.com/crmdesk/crmctl/internal/config"
	"github.com/crmdesk/crmctl/internal/gate"
	"github.com/crmdesk/crmctl/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// app bundles the wired collaborators every command needs.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	client *api.Client
	store  *session.Store
}

func usage() {
	fmt.Fprintf(os.Stderr, `crmctl - CRM command line client
Usage:
  crmctl [-base-url URL] [-timeout DUR] [-state-dir DIR] <cmd> [args]

Commands:
  version
  register     -u <username> -p <password>
  login        -u <username> -p <password>          (saves session)
  logout
  whoami
  dashboard
  conversion
  leads        [-filter my|new|qualified]
  lead         -id <id>
  lead-add     -first F -last L -email E [-company C] [-status S] [-source S] [-assigned U]   (admin)
  lead-edit    -id <id> [field flags]
  lead-rm      -id <id>                             (admin)
  activity-add -lead <id> -type Call|Email|Meeting [-notes N]
  users                                             (admin)
  user-add     -u <username> -p <password> -role admin|sales_rep   (admin)
  user-edit    -id <id> [-u U] [-p P] [-role R]     (admin)
  user-rm      -id <id>                             (admin)
`)
	os.Exit(2)
}

// main wires config, logging, session and API client, then runs the
// requested command behind the access gate.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// global flags; env (and .env) provide the defaults
	baseURL := flag.String("base-url", cfg.BaseURL, "backend origin")
	timeout := flag.Duration("timeout", cfg.Timeout, "request timeout")
	stateDir := flag.String("state-dir", cfg.StateDir, "session state directory")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level (debug|info|warn|error)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	logger := newLogger(*logLevel)
	defer func() { _ = logger.Sync() }()

	storage := session.NewFileStorage(*stateDir)

	// client and store reference each other: the client reads the bearer
	// token from the store, the store logs in through the client
	var store *session.Store
	client := api.New(*baseURL, *timeout, api.TokenFunc(func() string {
		if store == nil {
			return ""
		}
		return store.Token()
	}), logger)
	store = session.NewStore(storage, client, logger)

	r, ok := routeTable()[cmd]
	if !ok {
		usage()
	}

	store.Hydrate()
	args := flag.Args()[1:]

	switch d := gate.Decide(store.Snapshot(), r.req); d.Action {
	case gate.Wait:
		// hydration is synchronous, so this cannot happen after Hydrate
		logger.Fatal("session still loading after hydrate")
	case gate.Redirect:
		switch d.Target {
		case gate.RouteLogin:
			fmt.Fprintln(os.Stderr, "not logged in: run 'crmctl login -u USER -p PASS'")
			os.Exit(1)
		case gate.RouteDashboard:
			fmt.Fprintln(os.Stderr, "admin access required; showing dashboard instead")
			r = routeTable()["dashboard"]
			args = nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	a := &app{cfg: cfg, log: logger, client: client, store: store}
	if err := r.run(ctx, a, args); err != nil {
		fail(err)
	}
}

func newLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// ---- helpers ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
