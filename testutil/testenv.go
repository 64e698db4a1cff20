// Package testutil provides shared test environment helpers for E2E tests.
// It depends only on stdlib so that E2E tests (which cannot import
// internal/) can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, "\"'")

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// ValidateAllowlist crashes the process if PASTE_PROXY_ALLOWED_TEST_ORIGINS
// is not set or if the origin in originEnvVar is not in the allowlist. It
// keeps E2E runs from uploading into a production File Browser.
func ValidateAllowlist(originEnvVar string) {
	allowlist := os.Getenv("PASTE_PROXY_ALLOWED_TEST_ORIGINS")
	if allowlist == "" {
		fmt.Fprintln(os.Stderr, "FATAL: PASTE_PROXY_ALLOWED_TEST_ORIGINS not set")
		fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable.")
		fmt.Fprintln(os.Stderr, "Example: PASTE_PROXY_ALLOWED_TEST_ORIGINS=http://localhost:8080/filebrowser")
		os.Exit(1)
	}

	origin := os.Getenv(originEnvVar)
	if origin == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", originEnvVar)
		os.Exit(1)
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.TrimRight(strings.TrimSpace(a), "/") == strings.TrimRight(origin, "/") {
			return
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in PASTE_PROXY_ALLOWED_TEST_ORIGINS=%q\n",
		originEnvVar, origin, allowlist)
	os.Exit(1)
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
