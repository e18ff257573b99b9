package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/compta/internal/auditlog"
	"github.com/cleared-dev/compta/internal/httpapi"
	"github.com/cleared-dev/compta/internal/importer"
)

func newNextNumberCommand(root *rootOptions) *cobra.Command {
	var journalCode, date string

	cmd := &cobra.Command{
		Use:   "next-number",
		Short: "Print the next free piece number of a journal and month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			d := time.Now()
			if date != "" {
				if d, err = parseDate(date); err != nil {
					return err
				}
			}
			n, err := b.journal.NextPieceNumber(cmd.Context(), strings.ToUpper(journalCode), d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&journalCode, "journal", "j", "OD", "journal code")
	cmd.Flags().StringVarP(&date, "date", "d", "", "entry date (default today)")
	return cmd
}

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the books over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			if addr == "" {
				addr = b.cfg.Server.Addr
			}
			if addr == "" {
				addr = ":8080"
			}

			api := httpapi.New(httpapi.Deps{
				Journal:  b.journal,
				Accounts: b.accounts,
				Importer: importer.New(b.journal, b.accounts, b.log),
				Journals: b.cfg.Journals,
				OnChange: func(ctx context.Context, rec auditlog.Record) error {
					return b.record(ctx, rec)
				},
			}, b.log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, b, addr, api.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr, then :8080)")
	return cmd
}

func serve(ctx context.Context, b *books, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		b.log.Info("compta listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			b.log.Error("server shutdown error", "err", err)
			return err
		}
		b.log.Info("server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}
