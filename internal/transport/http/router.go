package http

import (
	"context"
	"net/http"

	"github.com/campus-chat-api/internal/application/avatar"
	"github.com/campus-chat-api/internal/application/chat"
	"github.com/campus-chat-api/internal/application/otp"
	"github.com/campus-chat-api/internal/application/profile"
	"github.com/campus-chat-api/internal/config"
	"github.com/campus-chat-api/internal/transport/http/handler"
	appmiddleware "github.com/campus-chat-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo   UserRepository
	OTPRepo    OTPRepository
	Objects    ObjectStore // nil disables /upload-profile-pic
	Dispatcher MailDispatcher
	Verifier   appmiddleware.TokenVerifier
	Log        *zap.Logger
}

// NewRouter builds and returns the application router.
// ctx bounds background work started for the router, such as rate limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// applied to the endpoints that send mail or check a code
	otpRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	otpSvc := otp.NewService(otp.ServiceDeps{
		OTPRepo:     deps.OTPRepo,
		UserRepo:    deps.UserRepo,
		Generator:   otp.NewGenerator(cfg.OTPValidity),
		Dispatcher:  deps.Dispatcher,
		HashCost:    cfg.OTPHashCost,
		MaxAttempts: cfg.OTPMaxAttempts,
		Log:         log,
	})
	profileSvc := profile.NewService(profile.ServiceDeps{UserRepo: deps.UserRepo})

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(otpSvc, log)
	profileH := handler.NewProfileHandler(profileSvc, log)

	// ── Public routes (no auth) ──────────────────────────────────────────
	r.Get("/health-check/{action}", healthH.Ping)
	r.Post("/health-check/{action}", healthH.Ping)

	// ── Authenticated routes ─────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.Auth(deps.Verifier, log))

		r.With(otpRL.Limit).Post("/send-otp", otpH.Send)
		r.With(otpRL.Limit).Post("/verify-otp", otpH.Verify)
		r.Post("/update-user-details", profileH.Update)
		r.Get("/user-details", profileH.Get)

		if deps.Objects != nil {
			avatarSvc := avatar.NewService(avatar.ServiceDeps{
				Store:    deps.Objects,
				Profiles: profileSvc,
				MaxBytes: cfg.AvatarMaxBytes,
				Log:      log,
			})
			r.Post("/upload-profile-pic", handler.NewAvatarHandler(avatarSvc, cfg.AvatarMaxBytes, log).Upload)
		}

		if cfg.ChatAPISecret != "" {
			chatSvc := chat.NewService(chat.ServiceDeps{
				UserRepo: deps.UserRepo,
				APIKey:   cfg.ChatAPIKey,
				Secret:   cfg.ChatAPISecret,
				TTL:      cfg.ChatTokenTTL,
			})
			r.Post("/chat-token", handler.NewChatHandler(chatSvc, log).Token)
		}
	})

	return r
}
