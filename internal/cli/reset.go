package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msomdec/shelfly/internal/domain"
)

var errBadResetCode = errors.New("invalid or expired reset code")

func newResetCommand(a *app) *cobra.Command {
	cmd := groupCommand("reset", "Password reset codes")
	cmd.AddCommand(newResetRequestCommand(a))
	cmd.AddCommand(newResetVerifyCommand(a))
	return cmd
}

func newResetRequestCommand(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Issue a reset code for an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.resets.IssueToken(commandContext(cmd), email)
			if err != nil {
				return err
			}
			// No delivery channel: the code goes to the terminal.
			fmt.Fprintf(cmd.OutOrStdout(), "reset code: %s (valid for %s)\n", code, a.cfg.ResetTTL)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetVerifyCommand(a *app) *cobra.Command {
	var email, code, newPassword string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Consume a reset code, optionally setting a new password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			var (
				user *domain.User
				err  error
			)
			if cmd.Flags().Changed("new-password") {
				user, err = a.resets.ResetPassword(ctx, email, code, newPassword)
			} else {
				user, err = a.resets.VerifyToken(ctx, email, code)
			}
			if err != nil {
				return err
			}
			if user == nil {
				return errBadResetCode
			}

			fmt.Fprintf(cmd.OutOrStdout(), "code accepted for %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&code, "code", "", "6-digit reset code")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "Password to set once the code is accepted")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}
