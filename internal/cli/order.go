package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sokohub/soko/internal/domain"
)

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderShowCmd)
	orderCmd.AddCommand(orderListCmd)
	orderCmd.AddCommand(orderTransitionCmd)
	orderCmd.AddCommand(orderRefundCmd)
	orderCmd.AddCommand(orderCloseDisputeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().Int("limit", 50, "Maximum records to show")

	orderListCmd.Flags().String("status", string(domain.StatusDisputed), "Order status to list")
	orderListCmd.Flags().Int("limit", 100, "Maximum orders to list")
	orderTransitionCmd.Flags().String("as", string(domain.RoleAdmin), "Role to act as: buyer, seller or admin")
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Inspect and move orders",
	Long: `Operator commands for the order state machine. Transitions follow the same
table as the API; completing a shipped order posts its payout, refunding a
disputed one posts the reversal.`,
}

var orderShowCmd = &cobra.Command{
	Use:   "show ORDER_ID",
	Short: "Show an order with its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			o, err := a.orders.GetOrder(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, o)
		})
	},
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders in one status",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			list, err := a.orders.ListByStatus(ctx, status, limit)
			if err != nil {
				return err
			}
			for _, o := range list {
				cmd.Printf("%s  %-10s %-8s %10d %s  buyer %s\n", o.ID, o.Status, o.PayoutStatus, o.Total, o.Currency, o.BuyerID)
			}
			return nil
		})
	},
}

var orderTransitionCmd = &cobra.Command{
	Use:   "transition ORDER_ID STATUS",
	Short: "Move an order to STATUS",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		target, err := domain.ParseStatus(args[1])
		if err != nil {
			return err
		}
		as, _ := cmd.Flags().GetString("as")
		role := domain.Role(as)
		if !role.Valid() {
			return domain.Errorf(domain.ErrValidation, "transition", "unknown role %q", as)
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			o, err := a.orders.TransitionOrder(ctx, id, target, role)
			if err != nil {
				return err
			}
			cmd.Printf("Order %s is now %s (payout %s)\n", o.ID, o.Status, o.PayoutStatus)
			return nil
		})
	},
}

var orderRefundCmd = &cobra.Command{
	Use:   "refund ORDER_ID",
	Short: "Refund a disputed order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			tx, err := a.orders.RefundOrder(ctx, id)
			if err != nil {
				return err
			}
			if tx == nil {
				cmd.Printf("Order %s refunded; sellers were never paid, nothing posted\n", id)
				return nil
			}
			cmd.Printf("Order %s refunded under %s (%d entries)\n", id, tx.Reference, len(tx.Entries))
			return nil
		})
	},
}

var orderCloseDisputeCmd = &cobra.Command{
	Use:   "close-dispute ORDER_ID",
	Short: "Resolve a dispute in the seller's favour",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			o, err := a.orders.CloseDispute(ctx, id)
			if err != nil {
				return err
			}
			cmd.Printf("Order %s is now %s\n", o.ID, o.Status)
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show marketplace statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			st, err := a.stats.Get(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		})
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			return fmt.Errorf("--limit must be positive")
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			logs, err := a.store.ListAuditLogs(ctx, limit)
			if err != nil {
				return err
			}
			if logs == nil {
				logs = []domain.AuditLog{}
			}
			return printJSON(cmd, logs)
		})
	},
}
