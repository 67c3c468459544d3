package devapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

func (s *Server) mountUsers(r chi.Router) {
	p := s.opts.Paths
	r.With(requireAdminAccess).Get(p.Users, s.handleListUsers)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get(p.Users+"/{id}", s.handleGetUser)
		r.Get(p.UserSubscriptions, s.handleUserSubscriptions)
	})
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Put(p.Users+"/{id}", s.handleUpdateUser)
		r.Delete(p.Users+"/{id}", s.handleDeleteUser)
	})
}

// selfOrStaff lets users read their own record and staff read any record.
func selfOrStaff(r *http.Request, id int64) bool {
	p, ok := principalFrom(r.Context())
	return ok && (p.UserID == id || p.canAccessAdmin())
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	accounts := s.store.accounts.list(nil)
	users := make([]domain.User, 0, len(accounts))
	for _, acc := range accounts {
		if u, ok := s.store.userWithWallet(acc.User.ID); ok {
			users = append(users, u)
		}
	}
	respondWithJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	if !selfOrStaff(r, id) {
		respondWithMessage(w, http.StatusForbidden, "not allowed to read this user")
		return
	}
	user, ok := s.store.userWithWallet(id)
	if !ok {
		s.respondWithError(w, r, errNotFound)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

func (s *Server) handleUserSubscriptions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	if !selfOrStaff(r, id) {
		respondWithMessage(w, http.StatusForbidden, "not allowed to read this user")
		return
	}
	respondWithJSON(w, http.StatusOK, s.store.userSubscriptions(id))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	var in domain.UserInput
	if err := decodePayload(r, &in, nil); err != nil {
		s.respondWithError(w, r, err)
		return
	}
	if in.Username != nil {
		if current, ok := s.store.accounts.get(id); ok && current.User.Username != *in.Username && s.store.usernameTaken(*in.Username) {
			respondWithMessage(w, http.StatusConflict, "username is already taken")
			return
		}
	}

	_, err = s.store.accounts.update(id, func(acc *account) error {
		set(&acc.User.Username, in.Username)
		set(&acc.User.FullName, in.FullName)
		set(&acc.User.Phone, in.Phone)
		set(&acc.User.Role, in.Role)
		set(&acc.User.IsVerified, in.IsVerified)
		return nil
	})
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	user, _ := s.store.userWithWallet(id)
	respondWithJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	if p, _ := principalFrom(r.Context()); p.UserID == id {
		respondWithMessage(w, http.StatusConflict, "cannot delete the signed-in account")
		return
	}
	if !s.store.deleteAccount(id) {
		s.respondWithError(w, r, errNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
