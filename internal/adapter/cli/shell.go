package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"healthmate/internal/app"
	"healthmate/internal/domain"
)

const shellHelp = `Commands:
  date <YYYY-MM-DD|today|prev|next>  select the log date and load it
  list                               show the loaded records
  reload                             fetch the records again
  add key=value ...                  save a record for the selected date
  help                               show this help
  quit                               leave the shell
Fields: %s
`

func newShellCmd[R domain.Record, D domain.Draft[D]](opts *options, kind recordKind[R, D]) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: fmt.Sprintf("Interactive %s page for one date at a time", kind.noun),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			d, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			sh := &shell[R, D]{
				deps: d,
				kind: kind,
				in:   newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
				out:  cmd.OutOrStdout(),
				date: day,
			}
			return sh.run(cmd.Context())
		},
	}
	dateFlag(cmd, &date)
	return cmd
}

// shell is an interactive page. Every activation gets a fresh synchronizer.
type shell[R domain.Record, D domain.Draft[D]] struct {
	deps *deps
	kind recordKind[R, D]
	in   *prompter
	out  io.Writer
	date domain.LogDate
	page *app.Synchronizer[R, D]
}

func (sh *shell[R, D]) run(ctx context.Context) error {
	if err := sh.activate(ctx); err != nil {
		return err
	}
	for {
		fmt.Fprintf(sh.out, "%s %s> ", sh.kind.use, sh.page.View().Date)
		line, err := sh.in.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(sh.out)
			return nil
		}
		if err != nil {
			return err
		}
		args, err := splitArgs(line)
		if err != nil {
			fmt.Fprintf(sh.out, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		quit, err := sh.exec(ctx, args[0], args[1:])
		if err != nil {
			fmt.Fprintf(sh.out, "Error: %v\n", err)
			continue
		}
		if quit {
			return nil
		}
	}
}

// activate starts a new page activation, logging in again for as long as
// identity resolution redirects to the login page.
func (sh *shell[R, D]) activate(ctx context.Context) error {
	for {
		sh.page = newSync(sh.deps, sh.kind, sh.date)
		err := sh.page.Activate(ctx)
		var re *app.RedirectError
		if !errors.As(err, &re) {
			sh.show()
			return nil
		}
		if err := sh.follow(ctx, re.Redirect); err != nil {
			return err
		}
		if err := sh.login(ctx); err != nil {
			return err
		}
	}
}

// follow shows the notice and waits out the redirect delay.
func (sh *shell[R, D]) follow(ctx context.Context, r app.Redirect) error {
	fmt.Fprintln(sh.out, r.Notice)
	return sleep(ctx, r.After)
}

// login prompts until a login succeeds or input ends.
func (sh *shell[R, D]) login(ctx context.Context) error {
	auth := app.NewAuthService(sh.deps.identity, sh.deps.cfg.UI.AuthRedirectDelay)
	for {
		var creds credentials
		if err := creds.prompt(sh.in); err != nil {
			return err
		}
		r, err := auth.Login(ctx, creds.email, creds.password)
		if err != nil {
			fmt.Fprintf(sh.out, "Error: %v\n", err)
			continue
		}
		return sh.follow(ctx, r)
	}
}

func (sh *shell[R, D]) exec(ctx context.Context, name string, args []string) (bool, error) {
	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintf(sh.out, shellHelp, sh.kind.keys())
	case "list":
		sh.show()
	case "reload":
		_ = sh.page.Load(ctx)
		sh.show()
	case "date":
		if len(args) != 1 {
			return false, errors.New("usage: date <YYYY-MM-DD|today|prev|next>")
		}
		day, err := sh.pick(args[0])
		if err != nil {
			return false, err
		}
		sh.date = day
		_ = sh.page.SetDate(ctx, day)
		sh.show()
	case "add":
		return false, sh.add(ctx, args)
	default:
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
	return false, nil
}

func (sh *shell[R, D]) pick(arg string) (domain.LogDate, error) {
	current := sh.page.View().Date
	switch arg {
	case "prev":
		return current.AddDays(-1), nil
	case "next":
		return current.AddDays(1), nil
	default:
		return parseDateFlag(arg)
	}
}

func (sh *shell[R, D]) add(ctx context.Context, args []string) error {
	form := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", arg)
		}
		key, known := sh.kind.lookup(name)
		if !known {
			return fmt.Errorf("unknown field %q (fields: %s)", name, sh.kind.keys())
		}
		form[key] = value
	}
	draft, err := sh.kind.draft(form)
	if err != nil {
		return err
	}
	created, err := sh.page.Submit(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Saved %s %s.\n", sh.kind.noun, created.RecordID())
	sh.show()
	return nil
}

// show prints the records of the selected date and the last failure, if any.
func (sh *shell[R, D]) show() {
	_ = sh.kind.printView(sh.out, sh.page.View())
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// splitArgs splits a shell line on spaces. Single and double quotes group
// words; a backslash escapes the next character outside single quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote, inWord = r, true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
