//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/paste-proxy/testutil"
)

// E2E runs need a disposable File Browser instance:
//
//	PASTE_PROXY_E2E_ORIGIN=http://localhost:8080/filebrowser
//	PASTE_PROXY_E2E_USERNAME=admin
//	PASTE_PROXY_E2E_PASSWORD=...
//	PASTE_PROXY_ALLOWED_TEST_ORIGINS=http://localhost:8080/filebrowser
const originEnv = "PASTE_PROXY_E2E_ORIGIN"

var (
	binaryPath string
	origin     string
)

// tinyPNG is a valid 1x1 PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0xf8, 0xcf, 0xc0, 0xf0,
	0x1f, 0x00, 0x05, 0x00, 0x01, 0xff, 0x89, 0x99, 0x3d, 0x1d, 0x00, 0x00,
	0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestMain(m *testing.M) {
	root := testutil.FindModuleRoot("..")
	testutil.LoadDotEnv(filepath.Join(root, ".env"))
	testutil.ValidateAllowlist(originEnv)

	origin = os.Getenv(originEnv)

	tmpDir, err := os.MkdirTemp("", "paste-proxy-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}

	binaryPath = filepath.Join(tmpDir, "paste-proxy")

	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// isolatedEnv returns an environment whose config, credential, and history
// live under a fresh temp dir, so runs never touch the user's files.
func isolatedEnv(t *testing.T) []string {
	t.Helper()

	home := t.TempDir()

	return append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"XDG_DATA_HOME="+filepath.Join(home, ".local", "share"),
		"PASTE_PROXY_API_ORIGIN="+origin,
		"PASTE_PROXY_USERNAME="+os.Getenv("PASTE_PROXY_E2E_USERNAME"),
		"PASTE_PROXY_PASSWORD="+os.Getenv("PASTE_PROXY_E2E_PASSWORD"),
	)
}

func runCLI(t *testing.T, env []string, args ...string) (string, string) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("CLI command %v failed: %v\nstdout: %s\nstderr: %s", args, err, stdout.String(), stderr.String())
	}

	return stdout.String(), stderr.String()
}

func TestE2E_PasteRoundTrip(t *testing.T) {
	env := isolatedEnv(t)
	work := t.TempDir()

	img := filepath.Join(work, "e2e-shot.png")
	require.NoError(t, os.WriteFile(img, tinyPNG, 0o600))

	doc := filepath.Join(work, "notes.md")

	t.Run("login", func(t *testing.T) {
		_, stderr := runCLI(t, env, "login")
		assert.Contains(t, stderr, "Logged in")
	})

	var remoteName string

	t.Run("paste", func(t *testing.T) {
		stdout, _ := runCLI(t, env, "paste", img, "--into", doc, "--json")

		var results []map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &results))
		require.Len(t, results, 1)
		assert.Equal(t, "inserted", results[0]["status"])

		remoteName, _ = results[0]["remote_name"].(string)
		assert.Regexp(t, regexp.MustCompile(`^\d{14}_\d{6}_e2e-shot\.png$`), remoteName)

		data, err := os.ReadFile(doc)
		require.NoError(t, err)
		assert.Contains(t, string(data), "![e2e-shot.png]("+origin)
	})

	t.Run("history", func(t *testing.T) {
		stdout, _ := runCLI(t, env, "history", "--json")

		var records []map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &records))
		require.NotEmpty(t, records)
		assert.Equal(t, remoteName, records[0]["remote_name"])
	})

	t.Run("link", func(t *testing.T) {
		stdout, _ := runCLI(t, env, "link", remoteName)
		assert.Contains(t, stdout, "/api/raw/uploads/"+remoteName)
	})

	t.Run("logout", func(t *testing.T) {
		_, stderr := runCLI(t, env, "logout")
		assert.Contains(t, stderr, "Logged out")
	})
}
