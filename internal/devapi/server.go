/**
 * @description
 * This package is an in-memory reference implementation of the SplitUp REST
 * API. It serves the same routes the client calls, with the same wire
 * shapes, so the client can be exercised end to end without the production
 * backend.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: routing and request middleware.
 * - github.com/go-chi/cors: browser CORS handling.
 * - github.com/golang-jwt/jwt/v5: HS256 bearer tokens.
 * - golang.org/x/crypto/bcrypt: password hashing.
 * - golang.org/x/time/rate: auth endpoint throttling.
 */
package devapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
	"github.com/nsa09-nsa09/splitup-frontend/pkg/apiclient"
	"github.com/nsa09-nsa09/splitup-frontend/pkg/rabbitmq"
)

const maxBodyBytes = 1 << 20

// Options configures the reference backend.
type Options struct {
	JWTSecret            string
	TokenTTL             time.Duration
	CodeTTL              time.Duration
	AuthRatePerMinute    int
	AllowedOrigins       []string
	VerificationExchange string

	// Paths is the route table; the client's defaults when zero.
	Paths apiclient.Paths
}

// Server wires the store, token issuer and notifier to HTTP handlers.
type Server struct {
	store    *Store
	opts     Options
	tokens   *tokenIssuer
	notifier *Notifier
	limiter  *ipRateLimiter
	logger   *slog.Logger
	now      func() time.Time
}

// NewServer builds a server over store. publisher receives verification-code
// events; pass a rabbitmq.EventProducerFallback to only log them.
func NewServer(store *Store, publisher rabbitmq.Publisher, opts Options, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Paths == (apiclient.Paths{}) {
		opts.Paths = apiclient.DefaultPaths()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 15 * time.Minute
	}
	if opts.AuthRatePerMinute <= 0 {
		opts.AuthRatePerMinute = 30
	}
	if opts.VerificationExchange == "" {
		opts.VerificationExchange = "splitup.auth"
	}
	tokens, err := newTokenIssuer(opts.JWTSecret, opts.TokenTTL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:    store,
		opts:     opts,
		tokens:   tokens,
		notifier: NewNotifier(publisher, opts.VerificationExchange, logger),
		limiter:  newIPRateLimiter(opts.AuthRatePerMinute),
		logger:   logger,
		now:      time.Now,
	}
	return s, nil
}

// Router returns the HTTP handler. API routes are mounted under /api.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-Request-ID", apiclient.ActorHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(s.authenticate)
		s.mountCatalog(api)
		s.mountWallet(api)
		s.mountUsers(api)
		s.mountSpeedTest(api)
		s.mountAuth(api)
	})
	return r
}

// Sweeper returns a cron job that purges expired verification codes.
func (s *Server) Sweeper(schedule string) *Sweeper {
	return NewSweeper(s.store, schedule, s.logger)
}

// apiError is the error body; the client surfaces "message".
type apiError struct {
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithMessage(w http.ResponseWriter, code int, msg string) {
	respondWithJSON(w, code, apiError{Message: msg})
}

// respondWithError maps store and validation errors onto status codes.
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondWithMessage(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, errNotFound):
		respondWithMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, errConflict):
		respondWithMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, errInsufficientFunds):
		respondWithMessage(w, http.StatusUnprocessableEntity, "insufficient funds")
	case errors.Is(err, errUnprocessable):
		respondWithMessage(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("request failed", "component", "devapi", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		respondWithMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a single JSON document into v. Payload validation is the
// caller's job.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "is required")
		}
		return domain.NewValidationError("body", "is not valid JSON")
	}
	return nil
}

// pathID reads the {id} URL parameter; non-positive values are rejected.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}
