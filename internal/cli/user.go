package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msomdec/shelfly/internal/domain"
)

var errBadCredentials = errors.New("invalid email or password")

func newUserCommand(a *app) *cobra.Command {
	cmd := groupCommand("user", "Account operations")
	cmd.AddCommand(newUserRegisterCommand(a))
	cmd.AddCommand(newUserShowCommand(a))
	cmd.AddCommand(newUserLoginCommand(a))
	cmd.AddCommand(newUserUpdateCommand(a))
	cmd.AddCommand(newUserDeleteCommand(a))
	cmd.AddCommand(newUserCountCommand(a))
	return cmd
}

func newUserRegisterCommand(a *app) *cobra.Command {
	var name, email, password, phone string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.accounts.CreateUser(commandContext(cmd), name, email, password, phone)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (at least 6 characters)")
	cmd.Flags().StringVar(&phone, "phone", "", "Optional phone number")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserShowCommand(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.accounts.GetUserByEmail(commandContext(cmd), email)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("%w: no account for %s", domain.ErrNotFound, email)
			}
			printUser(cmd, user)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserLoginCommand(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check an email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.accounts.ValidateUser(commandContext(cmd), email, password)
			if err != nil {
				return err
			}
			if user == nil {
				return errBadCredentials
			}
			fmt.Fprintf(cmd.OutOrStdout(), "welcome, %s\n", user.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserUpdateCommand(a *app) *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change the name and/or password of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			update := domain.UserUpdate{Email: email}
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("password") {
				update.Password = &password
			}
			if err := a.accounts.UpdateUser(commandContext(cmd), update); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", domain.NormalizeEmail(email))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserDeleteCommand(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an account and all of its products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.accounts.DeleteUser(commandContext(cmd), email); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", domain.NormalizeEmail(email))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserCountCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.accounts.CountUsers(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func printUser(cmd *cobra.Command, user *domain.User) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:      %d\n", user.ID)
	fmt.Fprintf(out, "name:    %s\n", user.Name)
	fmt.Fprintf(out, "email:   %s\n", user.Email)
	if user.Phone != "" {
		fmt.Fprintf(out, "phone:   %s\n", user.Phone)
	}
	fmt.Fprintf(out, "created: %s\n", user.CreatedAt.Format("2006-01-02 15:04:05"))
}
