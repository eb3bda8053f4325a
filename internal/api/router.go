package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"iadetakip/internal/tracker"
	"iadetakip/internal/web"
)

type Options struct {
	OperatorPassword string
	JWTSecret        string
}

// NewRouter registers every endpoint. Without JWT_SECRET a random secret
// is used, so tokens do not survive a restart.
func NewRouter(tr *tracker.Tracker, opts Options) (http.Handler, error) {
	if opts.OperatorPassword == "" {
		return nil, errors.New("operator password is required")
	}
	hash, err := PasswordHash(opts.OperatorPassword)
	if err != nil {
		return nil, err
	}

	secret := opts.JWTSecret
	if secret == "" {
		if secret, err = randomHex(32); err != nil {
			return nil, err
		}
		slog.Warn("JWT_SECRET not set, tokens are valid until restart")
	}

	authHandler := &AuthHandler{PasswordHash: hash, JWTSecret: secret}
	h := &Handler{Tracker: tr}

	r := mux.NewRouter()
	r.Use(LoggingMiddleware)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/", scanPage).Methods(http.MethodGet)
	r.HandleFunc("/scan", scanPage).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)

	s := r.PathPrefix("/api").Subrouter()
	s.Use(AuthMiddleware(secret))

	s.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	s.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)

	s.HandleFunc("/expected", h.ListExpected).Methods(http.MethodGet)
	s.HandleFunc("/expected", h.ClearExpected).Methods(http.MethodDelete)
	s.HandleFunc("/expected/import", h.Import).Methods(http.MethodPost)
	s.HandleFunc("/expected/delete", h.DeleteExpectedMany).Methods(http.MethodPost)
	s.HandleFunc("/expected/{barcode}", h.DeleteExpected).Methods(http.MethodDelete)

	s.HandleFunc("/received", h.ListReceived).Methods(http.MethodGet)
	s.HandleFunc("/received", h.ClearReceived).Methods(http.MethodDelete)
	s.HandleFunc("/received/scan", h.Scan).Methods(http.MethodPost)
	s.HandleFunc("/received/delete", h.DeleteReceivedMany).Methods(http.MethodPost)
	s.HandleFunc("/received/{barcode}", h.DeleteReceived).Methods(http.MethodDelete)

	s.HandleFunc("/missing", h.ListMissing).Methods(http.MethodGet)
	s.HandleFunc("/all", h.ClearAll).Methods(http.MethodDelete)

	s.HandleFunc("/export/missing", h.ExportMissing).Methods(http.MethodGet)
	s.HandleFunc("/export/received", h.ExportReceived).Methods(http.MethodGet)

	return r, nil
}

// scanPage serves the phone page that logs in and posts camera or typed
// codes to /api/received/scan.
func scanPage(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, web.StaticFS(), "scan.html")
}
