package cli

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

func (a *App) walletCommand() *cobra.Command {
	var userID int64

	// owner is the signed-in user unless staff asked for someone else.
	owner := func() (int64, error) {
		me, err := a.currentUser()
		if err != nil {
			return 0, err
		}
		if userID == 0 || userID == me.ID {
			return me.ID, nil
		}
		if !a.session.CanAccessAdmin() {
			return 0, errStaffOnly
		}
		return userID, nil
	}

	show := func(cmd *cobra.Command, _ []string) error {
		id, err := owner()
		if err != nil {
			return err
		}
		w, err := a.client.Wallet.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		return a.render(w, "ID\tBALANCE\tCURRENCY\tVERIFIED", func(emit func(...string)) {
			emit(fmtID(w.ID), money(w.Balance), w.Currency, yesNo(w.IsVerified))
		})
	}

	root := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet balance and operations",
		Args:  exactArgs(0),
		RunE:  show,
	}
	root.PersistentFlags().Int64Var(&userID, "user", 0, "operate on another user's wallet (admin)")

	root.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the wallet balance",
			Args:  exactArgs(0),
			RunE:  show,
		},
		a.walletMoveCommand("deposit", "Add funds to the wallet", owner, a.depositFn()),
		a.walletMoveCommand("withdraw", "Withdraw funds from the wallet", owner, a.withdrawFn()),
		&cobra.Command{
			Use:   "history",
			Short: "List wallet transactions, newest first",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, _ []string) error {
				id, err := owner()
				if err != nil {
					return err
				}
				txs, err := a.client.Wallet.Transactions(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.render(txs, transactionHeader, func(emit func(...string)) {
					for _, tx := range txs {
						emit(transactionRow(tx)...)
					}
				})
			},
		},
	)
	return root
}

type moveFn func(ctx context.Context, userID int64, amount decimal.Decimal, method string) (*domain.Transaction, error)

func (a *App) depositFn() moveFn {
	return func(ctx context.Context, userID int64, amount decimal.Decimal, method string) (*domain.Transaction, error) {
		return a.client.Wallet.Deposit(ctx, userID, amount, method)
	}
}

func (a *App) withdrawFn() moveFn {
	return func(ctx context.Context, userID int64, amount decimal.Decimal, method string) (*domain.Transaction, error) {
		return a.client.Wallet.Withdraw(ctx, userID, amount, method)
	}
}

func (a *App) walletMoveCommand(use, short string, owner func() (int64, error), move moveFn) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   use + " AMOUNT",
		Short: short,
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(strings.TrimSpace(args[0]))
			if err != nil {
				return domain.NewValidationError("amount", "must be a decimal number")
			}
			id, err := owner()
			if err != nil {
				return err
			}
			tx, err := move(cmd.Context(), id, amount, method)
			if err != nil {
				return err
			}
			return a.render(tx, transactionHeader, func(emit func(...string)) {
				emit(transactionRow(*tx)...)
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", "card", "payment method")
	return cmd
}

const transactionHeader = "ID\tTYPE\tAMOUNT\tSTATUS\tMETHOD\tCREATED"

func transactionRow(tx domain.Transaction) []string {
	return []string{fmtID(tx.ID), string(tx.Type), money(tx.Amount), tx.Status, orDash(tx.PaymentMethod), when(tx.CreatedAt)}
}
