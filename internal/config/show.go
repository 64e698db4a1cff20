package config

import (
	"fmt"
	"io"
	"strings"
)

// RenderEffective writes the resolved configuration as an annotated TOML
// summary to w. This powers "config show".
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", orNone(r.ConfigPath))
	ew.printf("api_origin           = %q\n", r.APIOrigin)
	ew.printf("username             = %q\n", r.Username)
	ew.printf("request_timeout      = %q\n", r.RequestTimeout.String())
	ew.printf("bandwidth_limit      = %q\n", rateString(r.BandwidthLimit))
	ew.printf("credential_ttl       = %q\n", r.CredentialTTL.String())
	ew.printf("credential_file      = %q\n", r.CredentialFile)
	ew.printf("max_attempts         = %d\n", r.MaxAttempts)
	ew.printf("editor_poll_interval = %q\n", r.EditorPollInterval.String())

	if r.HistoryDB == "" {
		ew.printf("history_db           = %q\n", historyDisabled)
	} else {
		ew.printf("history_db           = %q\n", r.HistoryDB)
	}

	ew.printf("listen_addr          = %q\n", r.ListenAddr)
	ew.printf("bridge_origins       = [%s]\n", quoteAll(r.BridgeOrigins))
	ew.printf("log_level            = %q\n", r.LogLevel)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}

	return s
}

func rateString(bytesPerSec int64) string {
	if bytesPerSec == 0 {
		return "0"
	}

	return fmt.Sprintf("%dB/s", bytesPerSec)
}

func quoteAll(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = fmt.Sprintf("%q", s)
	}

	return strings.Join(quoted, ", ")
}
