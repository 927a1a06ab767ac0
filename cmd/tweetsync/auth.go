package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tweetsync/pkg/auth"
	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored X/Twitter logins",
	Long: `Manage stored X/Twitter logins.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

'tweetsync scrape' uses a stored login when neither flags nor the
environment provide one.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store a login securely",
	Long: `Store an X/Twitter login in the system keychain or encrypted file.

You will be prompted for:
  - Username (if not provided)
  - Password (hidden)
  - Email (optional, used when the site asks to confirm your identity)
  - TOTP secret (optional, base32 key of your authenticator app)`,
	Example: `  tweetsync auth login
  tweetsync auth login gopher`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove a stored login",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored logins",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func credentialManager() (*auth.Manager, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeConfiguration, err, "failed to initialize credential manager")
	}
	return manager, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := credentialManager()
	if err != nil {
		return err
	}
	return storeLogin(manager, prompter(), args)
}

func storeLogin(manager *auth.Manager, p auth.Prompter, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	}
	if username == "" {
		input, err := p.Prompt("Username")
		if err != nil {
			return apperrors.Wrap(apperrors.ErrorTypeConfiguration, err, "username is required")
		}
		username = input
	}
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return apperrors.Configuration("username is required")
	}

	password, err := p.PromptSecret("Password")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeConfiguration, err, "password is required")
	}
	if password == "" {
		return apperrors.Configuration("password is required")
	}

	// Both optional; an empty answer keeps them unset.
	mail, _ := p.Prompt("Email (optional)")
	secret, _ := p.PromptSecret("TOTP secret (optional)")

	account := &auth.Account{
		Username:     username,
		Mail:         mail,
		Password:     password,
		TOTPSecret:   strings.ToUpper(strings.ReplaceAll(secret, " ", "")),
		LastModified: time.Now(),
	}
	if err := manager.Store(account); err != nil {
		return apperrors.Persistence(err, "failed to store credentials")
	}

	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", username))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := credentialManager()
	if err != nil {
		return err
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		accounts, err := manager.List()
		if err != nil {
			return err
		}
		switch len(accounts) {
		case 0:
			ui.PrintWarning("No stored accounts found")
			return nil
		case 1:
			username = accounts[0].Username
		default:
			names := make([]string, 0, len(accounts))
			for _, a := range accounts {
				names = append(names, a.Username)
			}
			return apperrors.Configuration("several accounts stored (%s), name the one to remove", strings.Join(names, ", "))
		}
	}

	if err := manager.Delete(strings.TrimPrefix(username, "@")); err != nil {
		return apperrors.Persistence(err, "failed to remove account %s", username)
	}
	ui.PrintSuccess("Account removed: " + username)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := credentialManager()
	if err != nil {
		return err
	}

	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'tweetsync auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	for i, account := range accounts {
		clean := auth.SanitizeAccount(account)
		ui.PrintInfo(fmt.Sprintf("%d. Username", i+1), clean.Username)
		ui.PrintInfo("   Password", clean.Password)
		if clean.Mail != "" {
			ui.PrintInfo("   Email", clean.Mail)
		}
		if clean.TOTPSecret != "" {
			ui.PrintInfo("   TOTP secret", clean.TOTPSecret)
		}
		ui.PrintInfo("   Last Modified", clean.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}
