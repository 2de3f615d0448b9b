package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the self-evaluation service",
	Long: "Log in and store the session tokens locally. The password is read " +
		"from SELFEVAL_PASSWORD when set, otherwise from standard input without echo.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Offline {
			return errors.New("login is not needed in offline mode")
		}
		username, _ := cmd.Flags().GetString("username")

		d, err := openDeps(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer d.Close()

		stdin := cmd.InOrStdin()
		in := bufio.NewReader(stdin)
		out := cmd.OutOrStdout()
		if username == "" {
			if username, err = prompt(in, out, "Username: "); err != nil {
				return err
			}
		}
		password := os.Getenv("SELFEVAL_PASSWORD")
		if password == "" {
			if password, err = promptPassword(stdin, in, out, "Password: "); err != nil {
				return err
			}
		}

		claims, err := d.session.Login(cmd.Context(), username, password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		name := claims.Name
		if name == "" {
			name = claims.Subject
		}
		fmt.Fprintf(out, "Logged in as %s.\n", name)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Offline {
			return nil
		}
		d, err := openDeps(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.session.Teardown(cmd.Context()); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "User:    %s\n", d.displayName())
		fmt.Fprintf(out, "ID:      %s\n", d.user.ID)
		if d.user.Role != "" {
			fmt.Fprintf(out, "Role:    %s\n", d.user.Role)
		}
		if d.session != nil {
			if claims, ok := d.session.Claims(); ok && !claims.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "Expires: %s\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
			}
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "Username or university email")
}

// prompt writes label and reads one trimmed line.
func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := readLine(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword writes label and reads a password without echoing it.
// A terminal has its echo switched off; piped input is read as a line.
// Only the line ending is removed.
func promptPassword(stdin io.Reader, in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	defer fmt.Fprintln(out)

	if f, ok := stdin.(*os.File); ok && term.IsTerminal(f.Fd()) {
		b, err := term.ReadPassword(f.Fd())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(in)
}

// readLine reads one line without its line ending.
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
