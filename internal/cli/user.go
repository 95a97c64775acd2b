package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sokohub/soko/internal/app/accounts"
	"github.com/sokohub/soko/internal/app/ledger"
	"github.com/sokohub/soko/internal/daemon"
	"github.com/sokohub/soko/internal/domain"
)

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userNotificationsCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	userCreateCmd.Flags().String("name", "", "Display name (required)")
	userCreateCmd.Flags().String("email", "", "Email address (required)")
	userCreateCmd.Flags().String("role", "buyer", "buyer, seller or admin")
	userCreateCmd.Flags().String("currency", "", "Account currency (default: ledger currency)")
	userCreateCmd.MarkFlagRequired("name")
	userCreateCmd.MarkFlagRequired("email")

	userNotificationsCmd.Flags().Int("limit", 20, "Maximum notifications to show")

	entriesCmd.Flags().Int("limit", ledger.DefaultPageSize, "Entries per page")
	entriesCmd.Flags().String("cursor", "", "Cursor from a previous page")
}

// ─── user ───────────────────────────────────────────────────────────────────

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage marketplace users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user together with its ledger account",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		role, _ := cmd.Flags().GetString("role")
		currency, _ := cmd.Flags().GetString("currency")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if currency == "" {
				currency = a.cfg.Ledger.Currency
			}
			u, acct, err := a.accounts.CreateUser(ctx, accounts.NewUser{
				Name: name, Email: email, Role: domain.Role(role),
			}, currency)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"user": u, "account": acct})
		})
	},
}

var userNotificationsCmd = &cobra.Command{
	Use:   "notifications USER_ID",
	Short: "Show a user's latest notifications",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			ns, err := a.store.ListNotifications(ctx, id, limit)
			if err != nil {
				return err
			}
			for _, n := range ns {
				cmd.Printf("%s  %-20s %s\n", n.CreatedAt.Format("2006-01-02 15:04"), n.Title, n.Message)
			}
			return nil
		})
	},
}

// ─── balance / entries ──────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance ACCOUNT_ID",
	Short: "Show an account balance in minor units",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			acct, err := a.store.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			bal, err := a.ledger.GetBalance(ctx, id)
			if err != nil {
				return err
			}
			cmd.Printf("%s  %d %s\n", acct.ID, bal, acct.Currency)
			return nil
		})
	},
}

var entriesCmd = &cobra.Command{
	Use:   "entries ACCOUNT_ID",
	Short: "List an account's entries, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		cursor, _ := cmd.Flags().GetString("cursor")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			page, err := a.ledger.ListEntries(ctx, id, ledger.Page{Cursor: cursor, Limit: limit})
			if err != nil {
				return err
			}
			for _, e := range page.Entries {
				cmd.Printf("%s  %-6s %12d  tx %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type(), e.Amount, e.TransactionID)
			}
			if page.NextCursor != "" {
				cmd.Printf("\nMore: soko entries %s --cursor %s\n", id, page.NextCursor)
			}
			return nil
		})
	},
}

// ─── config ─────────────────────────────────────────────────────────────────

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := daemon.Save(configPath, daemon.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		cmd.Printf("Wrote %s\n", configPath)
		return nil
	},
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
