package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"quizctl/internal/auth"
	"quizctl/internal/domain"
	"quizctl/internal/gateway"
)

// RouterOptions configures the reference gateway router.
type RouterOptions struct {
	// AllowedOrigins for CORS; empty allows every origin.
	AllowedOrigins []string
	// Issuer verifies bearer tokens for /user/me. Nil rejects every token.
	Issuer *auth.Issuer
	// WS, when set, is mounted at /ws.
	WS     http.Handler
	Logger zerolog.Logger
}

type api struct {
	svc    *gateway.Service
	issuer *auth.Issuer
	log    zerolog.Logger
}

type errorBody struct {
	Detail string `json:"detail"`
}

// NewRouter exposes svc with the attempt gateway wire contract.
func NewRouter(svc *gateway.Service, opts RouterOptions) http.Handler {
	a := &api{
		svc:    svc,
		issuer: opts.Issuer,
		log:    opts.Logger.With().Str("component", "http").Logger(),
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, a.requestLogger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/quiz_process", func(r chi.Router) {
		r.Post("/start_quiz", a.startQuiz)
		r.Post("/end_quiz", a.endQuiz)
	})
	r.Get("/quiz/", a.listQuizzes)
	r.Get("/quiz/{id}", a.getQuiz)
	r.Get("/result/", a.listResults)
	r.Get("/result/{id}", a.getResult)
	r.Get("/user/me", a.me)

	if opts.WS != nil {
		r.Handle("/ws", opts.WS)
	}
	return r
}

func (a *api) startQuiz(w http.ResponseWriter, r *http.Request) {
	var req domain.StartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	payload, err := a.svc.StartQuiz(r.Context(), req, ClientKey(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *api) endQuiz(w http.ResponseWriter, r *http.Request) {
	var req domain.EndRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := a.svc.EndQuiz(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *api) listQuizzes(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	filter := domain.QuizFilter{
		Page:  page,
		Limit: limit,
		Title: strings.TrimSpace(r.URL.Query().Get("title")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("is_active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: "is_active must be true or false"})
			return
		}
		filter.IsActive = &active
	}

	out, err := a.svc.ListQuizzes(r.Context(), filter)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "quiz id must be a positive integer"})
		return
	}
	out, err := a.svc.GetQuiz(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) listResults(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	var userID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: "user_id must be an integer"})
			return
		}
		userID = &id
	}

	out, err := a.svc.ListResults(r.Context(), userID, page, limit)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "result id must be a positive integer"})
		return
	}
	out, err := a.svc.GetResult(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	if token == "" || a.issuer == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "Not authenticated"})
		return
	}
	user, err := a.issuer.Parse(token)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *api) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: ve.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "Invalid Quiz ID or PIN"})
	case errors.Is(err, domain.ErrSessionExpired):
		writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "Session expired"})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "Could not validate credentials"})
	case errors.Is(err, domain.ErrQuizNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Quiz not found"})
	case errors.Is(err, domain.ErrResultNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Result not found"})
	case errors.Is(err, domain.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Detail: "Too many attempts"})
	default:
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "request failed"})
	}
}

func (a *api) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "invalid request body"})
		return false
	}
	return true
}

func pageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
		return 0, 0, false
	}
	limit, err := intParam(r, "limit", domain.DefaultPageLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
		return 0, 0, false
	}
	return page, limit, true
}

func intParam(r *http.Request, key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return parsed, nil
}

// ClientKey identifies the caller for attempt throttling.
func ClientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(r *http.Request) string {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
