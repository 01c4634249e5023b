package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"meetprep/internal/google"
	"meetprep/internal/outlook"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a calendar provider and save its token.",
		Subcommands: []*cli.Command{
			{
				Name:   "google",
				Usage:  "Authenticate a Google account to get an API token.",
				Action: authGoogle,
			},
			{
				Name:   "outlook",
				Usage:  "Authenticate a Microsoft account with the device code flow.",
				Action: authOutlook,
			},
		},
	}
}

func authGoogle(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger.Info("Starting Google authentication flow.")

	oauthCfg, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
	if err != nil {
		return fmt.Errorf("failed to get google oauth config: %w", err)
	}

	authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the "+
		"authorization code: \n%v\n", authURL)

	fmt.Print("Enter Authorization Code: ")
	reader := bufio.NewReader(os.Stdin)
	authCode, _ := reader.ReadString('\n')
	authCode = strings.TrimSpace(authCode)

	token, err := google.TokenFromWeb(c.Context, oauthCfg, authCode)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}

	fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
	accountName, _ := reader.ReadString('\n')
	accountName = strings.TrimSpace(accountName)
	if accountName == "" {
		accountName = "default"
	}
	tokenFile := google.TokenPath(cfg.Google.TokenDir, accountName)

	if err := google.SaveToken(tokenFile, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
	return nil
}

func authOutlook(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger.Info("Starting Microsoft device code flow.")

	oauthCfg := outlook.OAuthConfig(os.Getenv("OUTLOOK_CLIENT_ID"), cfg.Outlook.Tenant)
	err = outlook.Authenticate(c.Context, oauthCfg, cfg.Outlook.TokenPath, func(r *oauth2.DeviceAuthResponse) {
		fmt.Printf("\n  1. Open: %s\n  2. Enter code: %s\n\n  Waiting for you to authorize...\n\n", r.VerificationURI, r.UserCode)
	})
	if err != nil {
		return err
	}

	logger.Info("Successfully authenticated and saved token.", "file", cfg.Outlook.TokenPath)
	return nil
}
