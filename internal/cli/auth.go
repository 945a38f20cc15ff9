package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yildizm/ContractSum/internal/api"
)

var (
	loginUsername     string
	passwordFromStdin bool
	registerEmail     string
)

func newLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Long: `Exchange a username and password for an access token.

The token is saved to the session file (mode 0600) and used by every other
command until "contractsum logout".`,
		Example: `  contractsum login --username alice
  echo "$PASSWORD" | contractsum login -u alice --password-stdin`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	cmd.Flags().BoolVar(&passwordFromStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

func newRegisterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Long: `Create an account on the backend. Registering does not sign you in,
run "contractsum login" afterwards.`,
		Args: cobra.NoArgs,
		RunE: runRegister,
	}

	cmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&registerEmail, "email", "e", "", "account email")
	cmd.Flags().BoolVar(&passwordFromStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newSessionStore()
			if err != nil {
				return err
			}
			if store.Token() == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if err := store.Clear(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Logged out\n", GetEmoji("logout"))
			return nil
		},
	}
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			_, _, user, err := authenticate(ctx)
			if err != nil {
				return err
			}

			if getOutputFormat() == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(user)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s <%s>\n", GetEmoji("user"), user.Username, user.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", GetEmoji("server"), GetGlobalConfig().Server.BaseURL)
			return nil
		},
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	in := bufio.NewReader(cmd.InOrStdin())

	username, err := promptValue(cmd, in, "Username", loginUsername)
	if err != nil {
		return err
	}
	password, err := readPassword(cmd, in)
	if err != nil {
		return err
	}
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	store, err := newSessionStore()
	if err != nil {
		return err
	}

	token, err := client.Login(ctx, username, password)
	if err != nil {
		return errors.New(api.UserMessage(err, api.MsgLoginFailed))
	}

	client.SetToken(token.AccessToken)
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return errors.New(api.UserMessage(err, api.MsgUserFailed))
	}

	if err := store.SetToken(token.AccessToken, user.Username); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	GetLogger("cli").Debug("Session saved to %s", store.Path())
	fmt.Fprintf(cmd.OutOrStdout(), "%s Logged in as %s\n", GetEmoji("success"), user.Username)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	in := bufio.NewReader(cmd.InOrStdin())

	username, err := promptValue(cmd, in, "Username", loginUsername)
	if err != nil {
		return err
	}
	email, err := promptValue(cmd, in, "Email", registerEmail)
	if err != nil {
		return err
	}
	password, err := readPassword(cmd, in)
	if err != nil {
		return err
	}

	req := &api.RegisterRequest{Username: username, Email: email, Password: password}
	if err := req.Validate(); err != nil {
		return errors.New(api.UserMessage(err, api.MsgRegisterFailed))
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	user, err := client.Register(ctx, req)
	if err != nil {
		return errors.New(api.UserMessage(err, api.MsgRegisterFailed))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Account created for %s. Run 'contractsum login' to sign in.\n",
		GetEmoji("success"), user.Username)
	return nil
}

// promptValue returns value when set, otherwise asks for it on one line
func promptValue(cmd *cobra.Command, in *bufio.Reader, label, value string) (string, error) {
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	return readLine(in)
}

// readPassword reads the password from stdin when --password-stdin is set,
// from the terminal without echo when stdin is a terminal, otherwise as a line.
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	if passwordFromStdin {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(data), nil
	}
	line, err := readLine(in)
	if err != nil {
		return "", err
	}
	return line, nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
