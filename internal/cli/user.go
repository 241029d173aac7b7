package cli

import (
	"github.com/spf13/cobra"

	"github.com/truenumber/truenumber-cli/internal/guard"
	"github.com/truenumber/truenumber-cli/internal/model"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User directory management (admin)",
	}

	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserShowCmd())
	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserUpdateCmd())
	cmd.AddCommand(newUserDeleteCmd())
	cmd.AddCommand(newUserToggleRoleCmd())

	return cmd
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCapability(guard.CapabilityAdmin); err != nil {
				return err
			}

			users, err := app.Admin.List(cmd.Context())
			if err != nil {
				return err
			}

			out.Print(UserListView{Users: users})
			return nil
		},
	}
}

func newUserShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one user with their game history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCapability(guard.CapabilityAdmin); err != nil {
				return err
			}

			details, err := app.Admin.FetchUserDetails(cmd.Context(), model.UserID(args[0]))
			if err != nil {
				return err
			}

			out.Print(*details)
			return nil
		},
	}
}

func newUserCreateCmd() *cobra.Command {
	var username, email, phone, pass, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCapability(guard.CapabilityAdmin); err != nil {
				return err
			}

			created, err := app.Admin.Create(cmd.Context(), model.UserDraft{
				Username: username,
				Email:    email,
				Phone:    phone,
				Password: pass,
				Role:     model.Role(role),
			})
			if err != nil {
				return err
			}

			out.PrintMessage("Utilisateur créé avec succès")
			out.Print(*created)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email (required)")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password, at least 6 characters (required)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleClient), "Role: client or admin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newUserUpdateCmd() *cobra.Command {
	var username, email, phone, pass, role string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user's fields (empty password means no change)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCapability(guard.CapabilityAdmin); err != nil {
				return err
			}

			updated, err := app.Admin.Update(cmd.Context(), model.UserID(args[0]), model.UserDraft{
				Username: username,
				Email:    email,
				Phone:    phone,
				Password: pass,
				Role:     model.Role(role),
			})
			if err != nil {
				return err
			}

			out.PrintMessage("Utilisateur mis à jour avec succès")
			out.Print(*updated)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "New username")
	cmd.Flags().StringVar(&email, "email", "", "New email")
	cmd.Flags().StringVar(&phone, "phone", "", "New phone number")
	cmd.Flags().StringVar(&pass, "pass", "", "New password (leave empty to keep the current one)")
	cmd.Flags().StringVar(&role, "role", "", "New role: client or admin")

	return cmd
}

func newUserDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCapability(guard.CapabilityAdmin); err != nil {
				return err
			}

			// --yes is the explicit confirm signal the controller demands.
			if err := app.Admin.Delete(cmd.Context(), model.UserID(args[0]), yes); err != nil {
				return err
			}

			out.PrintMessage("Utilisateur supprimé avec succès")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")

	return cmd
}

func newUserToggleRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-role <id>",
		Short: "Flip a user's role between client and admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCapability(guard.CapabilityAdmin); err != nil {
				return err
			}

			id := model.UserID(args[0])
			// The toggle reads the last loaded directory snapshot, so make
			// sure one exists.
			if len(app.Admin.Users()) == 0 {
				if _, err := app.Admin.List(cmd.Context()); err != nil {
					return err
				}
			}

			newRole, err := app.Admin.ToggleRole(cmd.Context(), id)
			if err != nil {
				return err
			}

			out.PrintMessage("Rôle changé en " + string(newRole))
			return nil
		},
		Args: cobra.ExactArgs(1),
	}
}
