package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"imgharvest/pkg/cookies"
	"imgharvest/pkg/ui"
)

var (
	cookiesAccount string
	cookiesVault   string
)

// cookiesCmd represents the cookies command
var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Manage stored session cookies",
	Long: `Store the session cookies used by interactive listings.

Cookies are exported from a logged in browser (Playwright storage state or a
cookie editor extension) and kept in one of:
  - System keychain, under --account
  - Encrypted vault file, under --vault (passphrase from IMGHARVEST_PASSPHRASE
    or prompted)

Never share your cookie exports!`,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Store a cookie export",
	Long: `Read a cookie export and store it in the keychain or the vault.

With no file, or with "-", the export is read from stdin.`,
	Example: `  imgharvest cookies import facebook_cookies.json --account personal
  imgharvest cookies import --vault ~/.config/imgharvest/cookies.vault < facebook_cookies.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCookiesImport,
}

var cookiesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarize stored cookies without revealing values",
	RunE:  runCookiesShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove cookies stored in the keychain",
	RunE:  runCookiesDelete,
}

func init() {
	rootCmd.AddCommand(cookiesCmd)
	cookiesCmd.AddCommand(importCmd)
	cookiesCmd.AddCommand(cookiesShowCmd)
	cookiesCmd.AddCommand(deleteCmd)

	cookiesCmd.PersistentFlags().StringVar(&cookiesAccount, "account", "", "keychain account name")
	cookiesCmd.PersistentFlags().StringVar(&cookiesVault, "vault", "", "encrypted vault file")
}

type cookieStore interface {
	cookies.Source
	Save(records []cookies.Record) error
}

// selectStore picks the keychain or the vault from the flags
func selectStore(confirm bool) (cookieStore, string, error) {
	switch {
	case cookiesAccount != "" && cookiesVault != "":
		return nil, "", errors.New("use either --account or --vault, not both")
	case cookiesAccount != "":
		return cookies.KeyringSource{Account: cookiesAccount}, "keychain account " + cookiesAccount, nil
	case cookiesVault != "":
		pass, err := vaultPassphrase(confirm)
		if err != nil {
			return nil, "", err
		}
		return cookies.VaultSource{Path: cookiesVault, Passphrase: pass}, "vault " + cookiesVault, nil
	}
	return nil, "", errors.New("one of --account or --vault is required")
}

func runCookiesImport(cmd *cobra.Command, args []string) error {
	store, where, err := selectStore(true)
	if err != nil {
		return err
	}

	var data []byte
	if len(args) == 0 || args[0] == "-" {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			ui.PrintInfo("Paste the cookie export", "end with Ctrl-D")
		}
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read cookie export: %w", err)
	}

	records, err := cookies.Parse(data)
	if err != nil {
		return err
	}
	live := cookies.DropExpired(records, time.Now())
	if len(live) == 0 {
		return errors.New("every cookie in the export has expired")
	}
	if dropped := len(records) - len(live); dropped > 0 {
		ui.PrintWarning("Skipped expired cookies", dropped)
	}

	if err := store.Save(live); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Stored %d cookies in %s", len(live), where))
	return nil
}

func runCookiesShow(cmd *cobra.Command, args []string) error {
	store, where, err := selectStore(false)
	if err != nil {
		return err
	}
	records, err := store.Load()
	if err != nil {
		return err
	}

	ui.PrintHighlight("Cookies in " + where)
	now := time.Now()
	for _, r := range records {
		expiry := "session"
		if !r.Session() {
			expiry = r.ExpiresAt().Format("2006-01-02 15:04")
			if r.Expired(now) {
				expiry += " (expired)"
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-20s %s\n", r.Name, r.Domain, expiry)
	}
	return nil
}

func runCookiesDelete(cmd *cobra.Command, args []string) error {
	if cookiesAccount == "" {
		return errors.New("--account is required; remove vault files directly")
	}
	if err := (cookies.KeyringSource{Account: cookiesAccount}).Delete(); err != nil {
		return err
	}
	ui.PrintSuccess("Removed cookies for " + cookiesAccount)
	return nil
}

// vaultPassphrase reads IMGHARVEST_PASSPHRASE or prompts for it
func vaultPassphrase(confirm bool) (string, error) {
	if pass := os.Getenv("IMGHARVEST_PASSPHRASE"); pass != "" {
		return pass, nil
	}

	fmt.Fprint(os.Stderr, "Vault passphrase: ")
	pass, err := readPassword()
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if pass == "" {
		return "", cookies.ErrNoPassphrase
	}
	if confirm {
		fmt.Fprint(os.Stderr, "Repeat passphrase: ")
		again, err := readPassword()
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		if again != pass {
			return "", errors.New("passphrases do not match")
		}
	}
	return pass, nil
}

// readPassword reads a line from the terminal without echoing
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: set IMGHARVEST_PASSPHRASE when stdin is not a terminal", cookies.ErrNoPassphrase)
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
