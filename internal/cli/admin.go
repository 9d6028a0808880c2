package cli

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/entities"
)

// readPassword reads a password from the terminal without echoing it.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return strings.TrimSpace(string(bytePassword)), nil
}

// passwordFromFlagOrPrompt returns the --password value, prompting twice when it is empty.
func passwordFromFlagOrPrompt(cmd *cobra.Command, password string) (string, error) {
	if password != "" {
		return password, nil
	}
	first, err := readPassword(cmd, "Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	second, err := readPassword(cmd, "Repeat password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if first != second {
		return "", fmt.Errorf("passwords do not match")
	}
	return first, nil
}

func newCreateAdminCommand(cfg func() *config.Config) *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Example: `  librarian create-admin --email admin@library.com --name Admin
  librarian create-admin --email ops@library.com --name Ops --password s3cret!`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFromFlagOrPrompt(cmd, password)
			if err != nil {
				return err
			}

			db, err := database.NewDatabase(cfg().Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			svc := auth.NewService(users.NewRepository(db.DB), cfg().Auth)
			user, err := svc.CreateUser(cmd.Context(), email, pw, name, entities.UserRoleAdmin)
			if err != nil {
				return fmt.Errorf("failed to create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Administrator email")
	cmd.Flags().StringVar(&name, "name", "Administrator", "Display name")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSeedCommand(cfg func() *config.Config) *cobra.Command {
	var adminEmail, adminName, adminPassword string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the administrator, default categories and sample books",
		Long: `Seed populates an empty library. Rows that already exist are kept,
so the command can be run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := database.SeedOptions{AdminEmail: adminEmail, AdminName: adminName}
			if adminEmail != "" {
				hash, err := auth.HashPassword(adminPassword, cfg().Auth.BcryptCost)
				if err != nil {
					return fmt.Errorf("failed to hash admin password: %w", err)
				}
				opts.AdminPasswordHash = hash
			}

			db, err := database.NewDatabase(cfg().Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			result, err := db.Seed(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d categories and %d books", result.Categories, result.Books)
			if result.AdminCreated {
				fmt.Fprintf(cmd.OutOrStdout(), "; created admin %s", adminEmail)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@library.com", "Administrator email (empty to skip)")
	cmd.Flags().StringVar(&adminName, "admin-name", "Admin", "Administrator display name")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "admin123", "Administrator password")
	return cmd
}
