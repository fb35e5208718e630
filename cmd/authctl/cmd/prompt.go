package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eyoklama/authclient/cmd/authctl/internal/config"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

var errNoInput = errors.New("input required: pass it on stdin or run interactively")

// secretReader reads secrets one per line from stdin, or prompts on a terminal.
type secretReader struct {
	cfg     *config.GlobalConfig
	fromIn  bool
	scanner *bufio.Scanner
}

func newSecretReader(cfg *config.GlobalConfig, fromStdin bool) *secretReader {
	return &secretReader{cfg: cfg, fromIn: fromStdin || cfg.NonInteractive}
}

func (r *secretReader) read(prompt string) (string, error) {
	if r.fromIn || !term.IsTerminal(int(os.Stdin.Fd())) {
		return r.line()
	}
	pterm.Print(prompt + ": ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	pterm.Println()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(prompt), err)
	}
	return string(b), nil
}

func (r *secretReader) line() (string, error) {
	if r.scanner == nil {
		in := r.cfg.Stdin
		if in == nil {
			in = os.Stdin
		}
		r.scanner = bufio.NewScanner(in)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return "", errNoInput
	}
	v := strings.TrimRight(r.scanner.Text(), "\r")
	if v == "" {
		return "", errNoInput
	}
	return v, nil
}
