package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/studyroom/studyroom/internal/auth/service"
	"github.com/studyroom/studyroom/internal/auth/store"
	"github.com/studyroom/studyroom/pkg/httpx"
	"github.com/studyroom/studyroom/pkg/jwtx"
	"github.com/studyroom/studyroom/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     *jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	AuthService    *service.AuthService
	MFAService     *service.MFAService
	SessionService *service.SessionService
	AccountService *service.AccountService
	CodeService    *service.CodeService
}

func NewRouter(
	verifier *jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerIdentity()
	r.registerMFA()
	r.registerAccount()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware
// chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerIdentity() {
	registerHandler := &RegisterHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/register",
		httpx.Chain(http.HandlerFunc(registerHandler.Handle),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	verifyHandler := &VerifyHandler{AuthService: r.AuthService, CodeService: r.CodeService}
	// Rate limited by IP + email body field so one address cannot be
	// brute-forced from many source addresses.
	r.Mux.Handle("POST /v1/verify-otp",
		httpx.Chain(http.HandlerFunc(verifyHandler.HandleVerify),
			httpx.RateLimitByIPAndEmail(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/resend-otp",
		httpx.Chain(http.HandlerFunc(verifyHandler.HandleResend),
			httpx.RateLimitByIPAndEmail(httpx.StrictLimit),
		),
	)

	loginHandler := &LoginHandler{AuthService: r.AuthService, SessionService: r.SessionService}
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleLogin),
			httpx.RateLimitByIPAndEmail(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/mfa/verify-login",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleVerifyLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	passwordHandler := &PasswordHandler{AuthService: r.AuthService, CodeService: r.CodeService}
	r.Mux.Handle("POST /v1/forgot-password",
		httpx.Chain(http.HandlerFunc(passwordHandler.HandleForgot),
			httpx.RateLimitByIPAndEmail(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/reset-password",
		httpx.Chain(http.HandlerFunc(passwordHandler.HandleReset),
			httpx.RateLimitByIPAndEmail(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMFA() {
	authn := httpx.AuthnMiddleware(r.verifier, r.SessionService)

	mfaHandler := &MFAHandler{MFAService: r.MFAService}
	r.Mux.Handle("POST /v1/mfa/setup",
		httpx.Chain(http.HandlerFunc(mfaHandler.HandleSetup),
			authn,
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/mfa/activate",
		httpx.Chain(http.HandlerFunc(mfaHandler.HandleActivate),
			authn,
			httpx.RateLimitByAccount(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/mfa/disable",
		httpx.Chain(http.HandlerFunc(mfaHandler.HandleDisable),
			authn,
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAccount() {
	authn := httpx.AuthnMiddleware(r.verifier, r.SessionService)

	meHandler := &MeHandler{AccountService: r.AccountService}
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(http.HandlerFunc(meHandler.Handle),
			authn,
			httpx.RateLimitByAccount(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/me/complete-profile",
		httpx.Chain(http.HandlerFunc(meHandler.HandleCompleteProfile),
			authn,
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/me/deactivate",
		httpx.Chain(http.HandlerFunc(meHandler.HandleDeactivate),
			authn,
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.buildVersion, r.startTime),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
