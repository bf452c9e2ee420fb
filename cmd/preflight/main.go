// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/auditlog"
	"github.com/hamed0406/uptimeworker/internal/config"
	"github.com/hamed0406/uptimeworker/internal/repo"
	"github.com/hamed0406/uptimeworker/internal/repo/stores"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, "✖", e)
		}
		fail("configuration invalid")
	}
	ok("ENV=" + string(cfg.Env))

	switch {
	case cfg.Twilio.Configured():
		ok("Twilio credentials present")
	case cfg.Env == config.EnvProduction:
		fail("production requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_PHONE")
	case cfg.SlackWebhookURL != "":
		warn("Twilio not configured; alerts go to Slack only.")
	default:
		warn("no alert gateway configured; alerts will only be logged.")
	}

	if cfg.Addr == "" {
		warn("ADDR is empty; ops API disabled.")
	} else {
		ok("ADDR=" + cfg.Addr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := stores.Open(ctx, cfg.StoreURL, zap.NewNop())
	if err != nil {
		fail("STORE_URL unusable: " + err.Error())
	}
	defer store.Close()
	ids, err := store.List(ctx)
	if err != nil {
		fail("listing checks: " + err.Error())
	}
	bad := 0
	for _, id := range ids {
		if _, err := repo.LoadCheck(ctx, store, id); err != nil {
			bad++
			warn(fmt.Sprintf("check %s will be skipped: %v", id, err))
		}
	}
	ok(fmt.Sprintf("store reachable: %d checks, %d malformed", len(ids), bad))

	if _, err := auditlog.New(cfg.AuditDir, zap.NewNop()); err != nil {
		fail("AUDIT_DIR unusable: " + err.Error())
	}
	ok("AUDIT_DIR=" + cfg.AuditDir)

	ok("preflight passed")
}
