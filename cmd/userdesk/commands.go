package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/userdesk/internal/app"
	"github.com/samvad-hq/userdesk/internal/auth"
	"github.com/samvad-hq/userdesk/internal/domain"
	"github.com/spf13/cobra"
)

// consoleOpener builds the runtime a command works against.
type consoleOpener func(ctx context.Context) (*app.Console, error)

type cli struct {
	open       consoleOpener
	jsonOutput bool
}

// newRootCmd assembles the command tree.
func newRootCmd(open consoleOpener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "userdesk",
		Short: "Command-line client for the users API",
		Long: `userdesk talks to the users API: register, log in and out,
browse users and edit your own profile.

The session is kept between invocations in a local store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(
		c.registerCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.usersCmd(),
	)
	return root
}

// withConsole opens the runtime for one command and always closes it.
func (c *cli) withConsole(fn func(cmd *cobra.Command, con *app.Console, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		con, err := c.open(cmd.Context())
		if err != nil {
			return err
		}
		runErr := fn(cmd, con, args)
		closeErr := con.Close()
		if runErr != nil {
			return explain(runErr)
		}
		return closeErr
	}
}

// explain turns session failures into actionable messages.
func explain(err error) error {
	switch {
	case errors.Is(err, app.ErrSessionCleared):
		return fmt.Errorf("%w\n(run `userdesk login` to start a new session)", err)
	case errors.Is(err, auth.ErrNotAuthenticated), errors.Is(err, auth.ErrSessionExpired):
		return fmt.Errorf("%w (run `userdesk login` first)", err)
	default:
		return err
	}
}

func (c *cli) registerCmd() *cobra.Command {
	var reg domain.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in as it",
		Args:  cobra.NoArgs,
		RunE: c.withConsole(func(cmd *cobra.Command, con *app.Console, _ []string) error {
			u, err := con.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			return c.printer(cmd).user(u)
		}),
	}
	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&reg.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var creds domain.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session",
		Args:  cobra.NoArgs,
		RunE: c.withConsole(func(cmd *cobra.Command, con *app.Console, _ []string) error {
			u, err := con.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			return c.printer(cmd).user(u)
		}),
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: c.withConsole(func(cmd *cobra.Command, con *app.Console, _ []string) error {
			if err := con.Logout(cmd.Context()); err != nil {
				return err
			}
			return c.printer(cmd).message("logged out")
		}),
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: c.withConsole(func(cmd *cobra.Command, con *app.Console, _ []string) error {
			u, err := con.WhoAmI()
			if err != nil {
				return err
			}
			return c.printer(cmd).user(u)
		}),
	}
}

func (c *cli) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Browse and edit users",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: c.withConsole(func(cmd *cobra.Command, con *app.Console, _ []string) error {
			all, err := con.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			return c.printer(cmd).users(all)
		}),
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user's profile",
		Args:  cobra.ExactArgs(1),
		RunE: c.withConsole(func(cmd *cobra.Command, con *app.Console, args []string) error {
			u, err := con.GetUser(cmd.Context(), domain.UserID(args[0]))
			if err != nil {
				return err
			}
			return c.printer(cmd).user(u)
		}),
	}

	cmd.AddCommand(list, get, c.editCmd())
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	var username, birthday string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit your own username or birthday",
		Args:  cobra.ExactArgs(1),
		RunE: c.withConsole(func(cmd *cobra.Command, con *app.Console, args []string) error {
			var upd domain.ProfileUpdate
			if cmd.Flags().Changed("username") {
				name := strings.TrimSpace(username)
				upd.Username = &name
			}
			if cmd.Flags().Changed("birthday") {
				d, err := domain.ParseDate(birthday)
				if err != nil {
					return fmt.Errorf("invalid --birthday: %w", err)
				}
				upd.Birthday = &d
			}
			u, err := con.EditUser(cmd.Context(), domain.UserID(args[0]), upd)
			if err != nil {
				return err
			}
			return c.printer(cmd).user(u)
		}),
	}
	cmd.Flags().StringVar(&username, "username", "", "new username")
	cmd.Flags().StringVar(&birthday, "birthday", "", "new birthday (YYYY-MM-DD)")
	cmd.MarkFlagsOneRequired("username", "birthday")
	return cmd
}
