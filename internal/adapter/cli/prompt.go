package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from the command input. Passwords are read without
// echo when the input is a terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	return p.readLine()
}

// readLine returns the next input line without its terminator. A final line
// without a newline is returned; io.EOF is reported only once input is empty.
func (p *prompter) readLine() (string, error) {
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) password(label string) (string, error) {
	if !p.tty {
		return p.line(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// fill asks for value unless it is already set. Secrets are kept verbatim.
func (p *prompter) fill(value *string, label string, secret bool) error {
	if *value != "" {
		return nil
	}
	read := p.line
	if secret {
		read = p.password
	}
	s, err := read(label)
	if err != nil {
		return fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	if !secret {
		s = strings.TrimSpace(s)
	}
	*value = s
	return nil
}
