package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sqptrack/internal/spapi"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Selling Partner API credentials",
	Long: `Store and verify the Login-with-Amazon credentials used by
'sqptrack fetch'. Credentials are sealed to .sqptrack/credentials.json
under a local key; neither file should be committed.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store LWA credentials",
	RunE:  runAuthSet,
}

var authTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify the stored credentials against the Reports API",
	Run:   runAuthTest,
}

var (
	authClientID     string
	authClientSecret string
	authRefreshToken string
)

func init() {
	rootCmd.AddCommand(authCmd)

	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authTestCmd)

	authSetCmd.Flags().StringVar(&authClientID, "client-id", "", "LWA client id")
	authSetCmd.Flags().StringVar(&authClientSecret, "client-secret", "", "LWA client secret")
	authSetCmd.Flags().StringVar(&authRefreshToken, "refresh-token", "", "LWA refresh token")
	authSetCmd.MarkFlagRequired("client-id")
	authSetCmd.MarkFlagRequired("client-secret")
	authSetCmd.MarkFlagRequired("refresh-token")
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	root := mustGetRoot()

	creds := &spapi.Credentials{
		ClientID:     authClientID,
		ClientSecret: authClientSecret,
		RefreshToken: authRefreshToken,
	}
	if err := spapi.SaveCredentials(root, creds); err != nil {
		return err
	}

	fmt.Println("✓ Credentials stored")
	fmt.Printf("  Client id:     %s\n", spapi.Mask(creds.ClientID))
	fmt.Printf("  Client secret: %s\n", spapi.Mask(creds.ClientSecret))
	fmt.Printf("  Refresh token: %s\n", spapi.Mask(creds.RefreshToken))
	fmt.Println("\nRun 'sqptrack auth test' to verify them.")
	return nil
}

func runAuthTest(cmd *cobra.Command, args []string) {
	logger := newLogger(outputFormat)
	root := mustGetRoot()
	ctx := newContext()

	client, err := newSpapiClient(root, logger)
	if err != nil {
		exitWithError(err)
	}

	if err := client.TestConnection(ctx); err != nil {
		fmt.Printf("✗ Connection failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Selling Partner API connection works")
}
