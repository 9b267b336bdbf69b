package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/driveroute/internal/adapters/driven/auth"
	oauthflow "github.com/custodia-labs/driveroute/internal/adapters/driven/oauth"
	"github.com/custodia-labs/driveroute/internal/adapters/driving/oauth"
	"github.com/custodia-labs/driveroute/internal/connectors/google"
)

var (
	authLoginPort    int
	authLoginTimeout time.Duration
	authNoBrowser    bool
)

// openBrowser is replaced in tests.
var openBrowser = oauth.OpenBrowser

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Google Drive authorisation",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorise driveroute to access Google Drive",
	Long: `Runs the installed-app OAuth consent flow. A browser window opens on the
Google consent page; after approval the token is saved to drive.token_file.

The client secret is read from drive.client_secret_file (download it from the
Google Cloud console as a "Desktop app" OAuth client).`,
	RunE: runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a usable token is stored",
	RunE:  runAuthStatus,
}

func init() {
	authLoginCmd.Flags().IntVar(&authLoginPort, "port", 0, "loopback port for the OAuth callback (0 picks a free port)")
	authLoginCmd.Flags().DurationVar(&authLoginTimeout, "timeout", 5*time.Minute, "how long to wait for consent")
	authLoginCmd.Flags().BoolVar(&authNoBrowser, "no-browser", false, "print the consent URL instead of opening a browser")
	authCmd.AddCommand(authLoginCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	oauthCfg, err := auth.LoadOAuthConfig(cfg.Drive.ClientSecretFile, google.DriveScope)
	if err != nil {
		return err
	}

	state := uuid.NewString()
	server := oauth.NewCallbackServer(authLoginPort, state)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start callback server: %w", err)
	}
	defer server.Stop()

	session, err := oauthflow.NewSession(oauthCfg, server.RedirectURI(), state)
	if err != nil {
		return err
	}

	authURL := session.AuthURL()
	if authNoBrowser {
		cmd.Printf("Open this URL to authorise driveroute:\n\n  %s\n\n", authURL)
	} else if err := openBrowser(authURL); err != nil {
		cmd.Printf("Could not open a browser (%v). Open this URL instead:\n\n  %s\n\n", err, authURL)
	} else {
		cmd.Println("Opened the consent page in your browser.")
	}
	cmd.Println("Waiting for authorisation...")

	ctx, cancel := context.WithTimeout(cmd.Context(), authLoginTimeout)
	defer cancel()

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return err
	}
	tok, err := session.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	if tok.RefreshToken == "" {
		cmd.Println("Warning: no refresh token was issued; you will need to log in again when the token expires.")
	}

	if err := auth.NewTokenStore(cfg.Drive.TokenFile).Save(tok); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	cmd.Printf("Token saved to %s\n", cfg.Drive.TokenFile)
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provider, err := newTokenProvider(cfg)
	if err != nil {
		return err
	}
	if !provider.IsAuthenticated() {
		cmd.Println("Not authenticated. Run 'driveroute auth login'.")
		return nil
	}

	drv, err := openDrive(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	email, err := drv.AccountEmail(cmd.Context())
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	cmd.Printf("Authenticated as %s\n", email)
	return nil
}
