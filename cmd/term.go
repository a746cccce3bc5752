package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/derickschaefer/pocketdash/internal/app"
	"github.com/derickschaefer/pocketdash/internal/config"
	"github.com/derickschaefer/pocketdash/internal/terminal"
)

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Run commands in the device's remote shell",
	Long: `The backend exposes a password-protected shell. term login stores the
issued token and working directory in the local database so later term
commands reuse the session until it expires or term logout is run.`,
}

var termPasswordStdin bool

// openSession opens the store and restores a persisted session.
func openSession(ctx context.Context) (*app.Deps, *terminal.Session, error) {
	deps, err := buildDeps()
	if err != nil {
		return nil, nil, err
	}
	if err := deps.RequireStore(); err != nil {
		return nil, nil, err
	}
	sess := terminal.NewSession(deps.Client, deps.Store)
	sess.Restore(ctx)
	return deps, sess, nil
}

// readPassword resolves the shell password: DASH_TERM_PASSWORD, one line of
// stdin with --password-stdin, or an interactive prompt.
func readPassword(cfg *config.Config, in io.Reader, out io.Writer) (string, error) {
	if cfg.TermPassword != "" {
		return cfg.TermPassword, nil
	}
	if termPasswordStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("no terminal for the password prompt; set %s or use --password-stdin", config.EnvTermPassword)
	}
	fmt.Fprint(out, "Password: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// ─── term login / logout ──────────────────────────────────────────────────────

var termLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and store the session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()
		if sess.State() == terminal.Active {
			if !deps.Config.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Already logged in (%s)\n", sess.Prompt())
			}
			return nil
		}
		pw, err := readPassword(deps.Config, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if err := sess.Login(cmd.Context(), pw); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in (%s)\n", sess.Prompt())
		}
		return nil
	},
}

var termLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()
		sess.Logout(cmd.Context())
		if !deps.Config.Quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
		}
		return nil
	},
}

// ─── term exec ────────────────────────────────────────────────────────────────

var termExecCmd = &cobra.Command{
	Use:   "exec <command...>",
	Short: "Run one command in the remote shell",
	Example: `  pocketdash term exec uptime
  pocketdash term exec -- ls -la /sdcard`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()
		if sess.State() != terminal.Active {
			return fmt.Errorf("%w: run `pocketdash term login` first", terminal.ErrNotLoggedIn)
		}
		res, err := sess.Exec(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), res.Output)
		if res.Output != "" && !strings.HasSuffix(res.Output, "\n") {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}

// ─── term shell ───────────────────────────────────────────────────────────────

var termShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive remote shell",
	Long: `Open a line-based shell on the device. Up/Down walk the command history
(200 entries), Ctrl-L or "clear" clears the screen locally, Ctrl-D on an
empty line exits. Logs in first when no stored session is valid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer deps.Close()

		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return errors.New("term shell needs an interactive terminal; use term exec instead")
		}
		out := cmd.OutOrStdout()
		if sess.State() != terminal.Active {
			pw, err := readPassword(deps.Config, os.Stdin, out)
			if err != nil {
				return err
			}
			if err := sess.Login(ctx, pw); err != nil {
				return err
			}
		}

		old, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("entering raw mode: %w", err)
		}
		defer term.Restore(fd, old)

		return runShell(ctx, sess, terminal.NewEditor(os.Stdin, out, sess.History), out)
	},
}

// runShell is the read-exec loop. out is a raw-mode terminal, so newlines
// in command output are expanded to CRLF.
func runShell(ctx context.Context, sess *terminal.Session, ed *terminal.Editor, out io.Writer) error {
	crlf := strings.NewReplacer("\r\n", "\r\n", "\n", "\r\n")
	for {
		line, err := ed.ReadLine(sess.Prompt())
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, terminal.ErrInterrupt):
			continue
		case err != nil:
			return err
		}

		res, err := sess.Exec(ctx, line)
		if errors.Is(err, terminal.ErrSessionExpired) {
			fmt.Fprintf(out, "%v\r\n", err)
			return err
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\r\n", err)
			continue
		}
		if res.Clear {
			fmt.Fprint(out, "\x1b[H\x1b[2J")
			continue
		}
		if res.Output != "" {
			io.WriteString(out, crlf.Replace(res.Output))
			if !strings.HasSuffix(res.Output, "\n") {
				io.WriteString(out, "\r\n")
			}
		}
	}
}

func init() {
	termLoginCmd.Flags().BoolVar(&termPasswordStdin, "password-stdin", false, "read the password from stdin")
	termShellCmd.Flags().BoolVar(&termPasswordStdin, "password-stdin", false, "read the password from stdin")

	termCmd.AddCommand(termLoginCmd, termExecCmd, termLogoutCmd, termShellCmd)
	rootCmd.AddCommand(termCmd)
}
