// Command checkctl manages check records and inspects audit logs without
// going through the worker.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/auditlog"
	"github.com/hamed0406/uptimeworker/internal/config"
	"github.com/hamed0406/uptimeworker/internal/repo"
	"github.com/hamed0406/uptimeworker/internal/repo/stores"
)

type app struct {
	storeURL string
	auditDir string
	verbose  bool
}

func (a *app) logger() *zap.Logger {
	if !a.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func (a *app) store(ctx context.Context) (repo.AdminStore, error) {
	return stores.Open(ctx, a.storeURL, a.logger())
}

func (a *app) audit() (*auditlog.Logger, error) {
	return auditlog.New(a.auditDir, a.logger())
}

func newRootCmd() *cobra.Command {
	cfg := config.FromEnv()
	a := &app{}

	root := &cobra.Command{
		Use:           "checkctl",
		Short:         "Manage uptime checks and read their audit logs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&a.storeURL, "store", cfg.StoreURL, "check store URL (memory, directory, postgres://, mysql://, sqlite:)")
	root.PersistentFlags().StringVar(&a.auditDir, "audit-dir", cfg.AuditDir, "audit log directory")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log store and probe activity to stderr")

	root.AddCommand(
		a.addCmd(),
		a.listCmd(),
		a.showCmd(),
		a.removeCmd(),
		a.historyCmd(),
		a.probeCmd(),
		a.rotateCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
