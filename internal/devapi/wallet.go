package devapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
	"github.com/nsa09-nsa09/splitup-frontend/pkg/apiclient"
)

func (s *Server) mountWallet(r chi.Router) {
	p := s.opts.Paths
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get(p.Wallet, s.handleGetWallet)
		r.Post(p.WalletDeposit, s.handleMove(domain.TransactionDeposit))
		r.Post(p.WalletWithdraw, s.handleMove(domain.TransactionWithdraw))
		r.Get(p.WalletTransactions, s.handleTransactions)
	})
}

// walletOwner resolves whose wallet a request addresses. The caller-asserted
// User-Id header is untrusted: it must match the token subject unless the
// caller is an admin.
func (s *Server) walletOwner(r *http.Request) (int64, int, string) {
	p, _ := principalFrom(r.Context())
	raw := strings.TrimSpace(r.Header.Get(apiclient.ActorHeader))
	if raw == "" {
		return p.UserID, 0, ""
	}
	asserted, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || asserted <= 0 {
		return 0, http.StatusBadRequest, apiclient.ActorHeader + " must be a positive integer"
	}
	if asserted != p.UserID && p.Role != domain.RoleAdmin {
		return 0, http.StatusForbidden, apiclient.ActorHeader + " does not match the authenticated user"
	}
	return asserted, 0, ""
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	owner, status, msg := s.walletOwner(r)
	if status != 0 {
		respondWithMessage(w, status, msg)
		return
	}
	wallet, err := s.store.wallet(owner)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleMove(kind domain.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, status, msg := s.walletOwner(r)
		if status != 0 {
			respondWithMessage(w, status, msg)
			return
		}
		var op domain.WalletOperation
		if err := decodeJSON(r, &op); err != nil {
			s.respondWithError(w, r, err)
			return
		}
		if !op.Amount.IsPositive() {
			s.respondWithError(w, r, domain.NewValidationError("amount", "must be greater than 0"))
			return
		}
		op.PaymentMethod = strings.TrimSpace(op.PaymentMethod)
		if op.PaymentMethod == "" {
			s.respondWithError(w, r, domain.NewValidationError("paymentMethod", "is required"))
			return
		}

		tx, err := s.store.move(owner, kind, op.Amount, op.PaymentMethod, s.now())
		if err != nil {
			s.logger.Info("wallet operation rejected", "component", "devapi", "type", kind, "user_id", owner, "amount", op.Amount.String(), "error", err)
			s.respondWithError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, tx)
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	owner, status, msg := s.walletOwner(r)
	if status != 0 {
		respondWithMessage(w, status, msg)
		return
	}
	history, err := s.store.transactions(owner)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, history)
}
