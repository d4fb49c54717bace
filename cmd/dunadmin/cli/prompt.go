package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dunvault/dunvault/internal/password"
)

// Prompter reads secrets and confirmations. On a terminal input is not
// echoed; otherwise one line is read per prompt so scripts can pipe values.
type Prompter struct {
	in       *bufio.Reader
	out      io.Writer
	fd       int
	terminal bool
}

// NewPrompter builds a Prompter over in. Echo is disabled only when in is a
// terminal file.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.terminal = true
	}
	return p
}

// Secret reads one value without echo.
func (p *Prompter) Secret(label string) (string, error) {
	printf(p.out, "%s: ", label)
	if p.terminal {
		raw, err := term.ReadPassword(p.fd)
		printf(p.out, "\n")
		if err != nil {
			return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
		}
		return string(raw), nil
	}
	return p.line()
}

// NewPassword asks twice and enforces the password policy.
func (p *Prompter) NewPassword() (string, error) {
	first, err := p.Secret("New password")
	if err != nil {
		return "", err
	}
	if err := password.ValidateNew("", first); err != nil {
		return "", err
	}
	second, err := p.Secret("Confirm password")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

// Confirm asks a yes/no question. Only "y" or "yes" confirm.
func (p *Prompter) Confirm(question string) (bool, error) {
	printf(p.out, "%s [y/N]: ", question)
	answer, err := p.line()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *Prompter) line() (string, error) {
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("unexpected end of input")
		}
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}
