package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to File Browser and cache the credential",
		Long: `Discard any cached credential, ask for the password, and log in.
The password is read from PASTE_PROXY_PASSWORD when set, otherwise it is
prompted for on the terminal.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached credential",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cached credential and watcher state",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger

	sess, err := NewSession(cmd.Context(), cc.Cfg, newSecretProvider(), logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	logger.Info("login started", "origin", cc.Cfg.APIOrigin, "username", cc.Cfg.Username)

	sess.Creds.Invalidate()

	cred, err := sess.Creds.Acquire(cmd.Context())
	if err != nil {
		return err
	}

	logger.Info("login successful", "username", cc.Cfg.Username)
	cc.Statusf("Logged in as %s. Credential valid until %s.\n",
		cc.Cfg.Username, cred.ExpiresAt.Local().Format(time.RFC1123))

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	sess, err := NewSession(cmd.Context(), cc.Cfg, newSecretProvider(), cc.Logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	sess.Creds.Invalidate()
	cc.Statusf("Logged out.\n")

	return nil
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	Origin         string     `json:"origin"`
	Username       string     `json:"username"`
	LoggedIn       bool       `json:"logged_in"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	WatcherPID     int        `json:"watcher_pid,omitempty"`
	HistoryDB      string     `json:"history_db,omitempty"`
	CredentialFile string     `json:"credential_file"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	sess, err := NewSession(cmd.Context(), cc.Cfg, newSecretProvider(), cc.Logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := statusOutput{
		Origin:         cc.Cfg.APIOrigin,
		Username:       cc.Cfg.Username,
		HistoryDB:      cc.Cfg.HistoryDB,
		CredentialFile: cc.Cfg.CredentialFile,
	}

	if cred, ok := sess.Creds.Peek(); ok {
		out.LoggedIn = true
		out.ExpiresAt = &cred.ExpiresAt
	}

	if pid, alive := watcherRunning(watchPIDPath()); alive {
		out.WatcherPID = pid
	}

	if cc.Flags.JSON {
		return printJSON(out)
	}

	fmt.Printf("Origin:   %s\n", out.Origin)
	fmt.Printf("Username: %s\n", out.Username)

	if out.LoggedIn {
		fmt.Printf("Login:    valid until %s\n", formatTime(*out.ExpiresAt))
	} else {
		fmt.Println("Login:    none (the next paste prompts for the password)")
	}

	if out.WatcherPID != 0 {
		fmt.Printf("Watcher:  running (PID %d)\n", out.WatcherPID)
	} else {
		fmt.Println("Watcher:  not running")
	}

	return nil
}
