package apiclient

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// WalletAPI talks to the wallet endpoints. The backend contract identifies the
// actor by the User-Id header rather than the bearer credential; both are sent.
type WalletAPI struct {
	client *Client
	paths  Paths
}

func actor(userID int64) map[string]string {
	return map[string]string{ActorHeader: strconv.FormatInt(userID, 10)}
}

// Get returns the wallet of userID.
func (w *WalletAPI) Get(ctx context.Context, userID int64) (*domain.Wallet, error) {
	if err := domain.RequirePositiveID("userId", userID); err != nil {
		return nil, err
	}
	var out domain.Wallet
	req := request{op: "wallet.get", method: http.MethodGet, path: w.paths.Wallet, headers: actor(userID)}
	if err := w.client.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Deposit credits amount to the wallet. The balance is only changed server-side.
func (w *WalletAPI) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, method string) (*domain.Transaction, error) {
	return w.move(ctx, "wallet.deposit", w.paths.WalletDeposit, userID, amount, method)
}

// Withdraw debits amount; the server rejects it when the balance is insufficient.
func (w *WalletAPI) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, method string) (*domain.Transaction, error) {
	return w.move(ctx, "wallet.withdraw", w.paths.WalletWithdraw, userID, amount, method)
}

// Transactions lists the wallet history, newest first as ordered by the server.
func (w *WalletAPI) Transactions(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	if err := domain.RequirePositiveID("userId", userID); err != nil {
		return nil, err
	}
	return list[domain.Transaction](ctx, w.client, request{op: "wallet.transactions", path: w.paths.WalletTransactions, headers: actor(userID)})
}

func (w *WalletAPI) move(ctx context.Context, op, path string, userID int64, amount decimal.Decimal, method string) (*domain.Transaction, error) {
	if err := domain.RequirePositiveID("userId", userID); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be greater than 0")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, domain.NewValidationError("paymentMethod", "is required")
	}

	var out domain.Transaction
	req := request{
		op:      op,
		method:  http.MethodPost,
		path:    path,
		body:    domain.WalletOperation{Amount: amount, PaymentMethod: method},
		headers: actor(userID),
	}
	if err := w.client.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
