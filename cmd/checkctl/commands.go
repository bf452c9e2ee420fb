package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hamed0406/uptimeworker/internal/auditlog"
	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/probe"
	"github.com/hamed0406/uptimeworker/internal/repo"
	"github.com/hamed0406/uptimeworker/internal/scheduler"
)

func (a *app) addCmd() *cobra.Command {
	var (
		c     domain.Check
		proto string
		meth  string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.ID = strings.ReplaceAll(uuid.NewString(), "-", "")
			c.Protocol = domain.Protocol(strings.ToLower(proto))
			c.Method = domain.Method(strings.ToLower(meth))
			c.State = domain.StateDown
			if err := c.Validate(); err != nil {
				return err
			}
			s, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := repo.CreateCheck(cmd.Context(), s, &c); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.UserPhone, "phone", "", "owner phone number, 11 digits")
	f.StringVar(&proto, "protocol", "https", "http or https")
	f.StringVar(&c.URL, "url", "", "host and path without scheme, e.g. example.com/health")
	f.StringVar(&meth, "method", "get", "get, post, put or delete")
	f.IntSliceVar(&c.SuccessCodes, "codes", []int{200}, "status codes that count as up")
	f.IntVar(&c.TimeoutSeconds, "timeout", 3, "probe timeout in seconds (1-5)")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List checks with their last known state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			ids, err := s.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATE\tMETHOD\tTARGET\tLAST CHECKED")
			for _, id := range ids {
				c, err := repo.LoadCheck(ctx, s, id)
				if err != nil {
					fmt.Fprintf(tw, "%s\tmalformed\t-\t-\t%v\n", id, err)
					continue
				}
				last := "never"
				if c.Probed() {
					last = c.LastChecked.Time().Format("2006-01-02 15:04:05Z07:00")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.State, c.HTTPMethod(), c.Target(), last)
			}
			return tw.Flush()
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored check record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			raw, err := s.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, raw, "", "  "); err != nil {
				// not JSON; show it as stored
				buf.Reset()
				buf.Write(raw)
			}
			fmt.Fprintln(cmd.OutOrStdout(), buf.String())
			return nil
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a check record; its audit logs are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Delete(cmd.Context(), args[0])
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var withArchives bool
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Print audit records of a check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			audit, err := a.audit()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if withArchives {
				paths, err := audit.Archives(id)
				if err != nil {
					return err
				}
				for _, p := range paths {
					recs, err := auditlog.ReadArchive(p)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "# %s\n", filepath.Base(p))
					printRecords(out, recs)
				}
			}
			recs, err := audit.Read(id)
			if err != nil {
				return err
			}
			if withArchives {
				fmt.Fprintln(out, "# live")
			}
			printRecords(out, recs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withArchives, "archives", false, "include rotated archives, oldest first")
	return cmd
}

func printRecords(w io.Writer, recs []domain.LogRecord) {
	for _, r := range recs {
		result := fmt.Sprintf("%d", r.Outcome.ResponseCode)
		if r.Outcome.Failed() {
			result = string(r.Outcome.Error)
		}
		alert := ""
		if r.AlertSent {
			alert = " alert"
		}
		fmt.Fprintf(w, "%s %s %s%s\n", r.Time.Time().Format("2006-01-02T15:04:05.000Z07:00"), r.State, result, alert)
	}
}

func (a *app) probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <id>",
		Short: "Probe a check once and show the verdict without recording it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			c, err := repo.LoadCheck(ctx, s, args[0])
			if err != nil {
				return err
			}
			out := probe.NewExecutor(probe.WithLogger(a.logger())).Probe(ctx, c)
			state, alert := scheduler.Evaluate(c, out)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "target:  %s %s\n", c.HTTPMethod(), c.Target())
			if out.Failed() {
				fmt.Fprintf(w, "result:  %s (%s)\n", out.Error, out.Detail)
			} else {
				fmt.Fprintf(w, "result:  %d\n", out.ResponseCode)
			}
			fmt.Fprintf(w, "latency: %dms\n", out.LatencyMS)
			fmt.Fprintf(w, "state:   %s -> %s\n", c.State, state)
			fmt.Fprintf(w, "alert:   %v\n", alert)
			return nil
		},
	}
}

func (a *app) rotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Archive and truncate every non-empty audit log now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			audit, err := a.audit()
			if err != nil {
				return err
			}
			rep := audit.Rotate(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "logs=%d archived=%d empty=%d failed=%d\n",
				rep.Logs, rep.Archived, rep.Empty, rep.Failed)
			if rep.Failed > 0 {
				return fmt.Errorf("%d logs failed to rotate", rep.Failed)
			}
			return nil
		},
	}
}
