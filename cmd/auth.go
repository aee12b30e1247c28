package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/meetslots/internal/google"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google accounts",
		Long: `Authorize a Google account for calendar and mail access. Open the URL
printed by "auth url", grant access and pass the code to "auth save".`,
	}
	cmd.PersistentFlags().StringVar(&account, "account", google.DefaultAccount, "Token account name")

	urlCmd := &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL for an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := google.ValidateAccountName(account); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), google.GetAuthURLForAccount(account))
			return nil
		},
	}

	var code string
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Exchange an authorization code and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := google.ValidateAccountName(account); err != nil {
				return err
			}
			if err := google.SaveTokenForAccount(cmd.Context(), account, code); err != nil {
				return fmt.Errorf("failed to save token for account %s: %w", account, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved for account %s\n", account)
			return nil
		},
	}
	saveCmd.Flags().StringVar(&code, "code", "", "Authorization code from the consent page")
	_ = saveCmd.MarkFlagRequired("code")

	cmd.AddCommand(urlCmd, saveCmd)
	return cmd
}
