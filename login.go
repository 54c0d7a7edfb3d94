package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check the active source's credentials",
		Long: `Authenticate against the active source's panel and show the account status,
expiry, and connection limits. Nothing is stored.`,
		RunE: runLogin,
	}
}

type loginReport struct {
	Source         string     `json:"source"`
	Username       string     `json:"username"`
	Status         string     `json:"status"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	MaxConnections int64      `json:"max_connections"`
	ActiveCons     int64      `json:"active_connections"`
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	sources := newSourceProvider(cc.Holder, cc.Resolved.SourceOverride, cc.Logger)

	name, client, err := sources.active()
	if err != nil {
		return err
	}

	info, err := client.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticating with source %s: %w", name, err)
	}

	report := loginReport{
		Source:         name,
		Username:       string(info.Username),
		Status:         string(info.Status),
		MaxConnections: int64(info.MaxConnections),
		ActiveCons:     int64(info.ActiveCons),
	}

	if info.ExpDate > 0 {
		exp := time.Unix(int64(info.ExpDate), 0)
		report.ExpiresAt = &exp
	}

	w := cmd.OutOrStdout()

	if cc.Flags.JSON {
		return printJSON(w, report)
	}

	expires := "never"
	if report.ExpiresAt != nil {
		expires = report.ExpiresAt.Format(time.DateOnly)
	}

	fmt.Fprintf(w, "Source:      %s\n", report.Source)
	fmt.Fprintf(w, "Username:    %s\n", report.Username)
	fmt.Fprintf(w, "Status:      %s\n", report.Status)
	fmt.Fprintf(w, "Expires:     %s\n", expires)
	fmt.Fprintf(w, "Connections: %d of %d in use\n", report.ActiveCons, report.MaxConnections)

	return nil
}
