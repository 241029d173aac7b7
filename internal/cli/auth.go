package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/truenumber/truenumber-cli/internal/apiclient"
	"github.com/truenumber/truenumber-cli/internal/guard"
	"github.com/truenumber/truenumber-cli/internal/session"
)

func newLoginCmd() *cobra.Command {
	var email, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Session.Login(cmd.Context(), session.Credentials{
				Email:    email,
				Password: pass,
			}); err != nil {
				return fmt.Errorf("%s", apiclient.ServerMessage(err, "Identifiants incorrects"))
			}

			out.Print(SessionView{User: app.Session.User(), Token: app.Client.Token()})
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newRegisterCmd() *cobra.Command {
	var username, email, phone, pass string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := app.Session.Register(cmd.Context(), session.Registration{
				Username: username,
				Email:    email,
				Phone:    phone,
				Password: pass,
			})
			if err != nil {
				return fmt.Errorf("%s", apiclient.ServerMessage(err, "Erreur lors de l'inscription"))
			}

			out.PrintMessage("Compte créé avec succès !")
			out.Print(SessionView{User: user, Token: app.Client.Token()})
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email (required)")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password, at least 6 characters (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Session.Logout()
			out.PrintMessage("Déconnexion réussie")
			return nil
		},
	}
}

func newMeCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the current account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCapability(guard.CapabilityAuthenticated); err != nil {
				return err
			}
			if refresh {
				if err := app.Session.Refresh(cmd.Context()); err != nil {
					return err
				}
			}
			out.Print(*app.Session.User())
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-fetch the profile from the server")

	return cmd
}
