package credential

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// PromptText is shown before reading the password interactively.
const PromptText = "Please enter the password to get upload permission: "

// ErrNoSecret means a provider had nothing to offer. Chain moves on to the
// next provider when it sees this error.
var ErrNoSecret = errors.New("credential: no password available")

// SecretProvider supplies the password for a login. The interactive
// terminal prompt is one implementation; headless runs and tests inject
// others.
type SecretProvider interface {
	Secret(ctx context.Context, username string) (string, error)
}

// SecretFunc adapts a function to SecretProvider.
type SecretFunc func(ctx context.Context, username string) (string, error)

// Secret calls f.
func (f SecretFunc) Secret(ctx context.Context, username string) (string, error) {
	return f(ctx, username)
}

// StaticSecret always returns password.
func StaticSecret(password string) SecretProvider {
	return SecretFunc(func(context.Context, string) (string, error) {
		return password, nil
	})
}

// EnvSecret reads the password from an environment variable. An unset or
// empty variable yields ErrNoSecret.
func EnvSecret(name string) SecretProvider {
	return SecretFunc(func(context.Context, string) (string, error) {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}

		return "", ErrNoSecret
	})
}

// Chain tries providers in order and returns the first password found.
func Chain(providers ...SecretProvider) SecretProvider {
	return SecretFunc(func(ctx context.Context, username string) (string, error) {
		for _, p := range providers {
			s, err := p.Secret(ctx, username)
			if errors.Is(err, ErrNoSecret) {
				continue
			}

			return s, err
		}

		return "", ErrNoSecret
	})
}

// TerminalPrompt asks for the password on a terminal without echo. When In
// is not a terminal it reads one line instead, so piped input works.
//
// Input is read through a single buffered reader shared by every prompt, and
// a read abandoned by a canceled prompt hands its line to the next prompt.
type TerminalPrompt struct {
	In  *os.File
	Out io.Writer

	mu      sync.Mutex
	rd      *bufio.Reader
	pending chan answer // read in progress, nil when idle
}

type answer struct {
	s   string
	err error
}

// NewTerminalPrompt prompts on stderr and reads from stdin.
func NewTerminalPrompt() *TerminalPrompt {
	return &TerminalPrompt{In: os.Stdin, Out: os.Stderr}
}

// Secret blocks until the user has answered or ctx is canceled.
func (p *TerminalPrompt) Secret(ctx context.Context, username string) (string, error) {
	fmt.Fprintf(p.Out, "[%s] %s", username, PromptText)

	p.mu.Lock()
	if p.pending == nil {
		ch := make(chan answer, 1)
		p.pending = ch

		go func() {
			s, err := p.read()
			ch <- answer{s, err}
		}()
	}

	ch := p.pending
	p.mu.Unlock()

	select {
	case a := <-ch:
		p.mu.Lock()
		p.pending = nil
		p.mu.Unlock()

		return a.s, a.err
	case <-ctx.Done():
		return "", fmt.Errorf("credential: prompt canceled: %w", ctx.Err())
	}
}

func (p *TerminalPrompt) read() (string, error) {
	fd := p.In.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		b, err := term.ReadPassword(int(fd))
		fmt.Fprintln(p.Out)

		if err != nil {
			return "", fmt.Errorf("credential: reading password: %w", err)
		}

		return string(b), nil
	}

	// Only the single in-flight read goroutine touches rd.
	p.mu.Lock()
	if p.rd == nil {
		p.rd = bufio.NewReader(p.In)
	}

	rd := p.rd
	p.mu.Unlock()

	line, err := rd.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("credential: reading password: %w", err)
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" && errors.Is(err, io.EOF) {
		return "", ErrNoSecret
	}

	return line, nil
}
