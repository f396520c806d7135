package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/joaquinllenado/quickquiz-backend/internal/auth/handler"
	"github.com/joaquinllenado/quickquiz-backend/internal/auth/mailer"
	"github.com/joaquinllenado/quickquiz-backend/internal/auth/otp"
	"github.com/joaquinllenado/quickquiz-backend/internal/auth/provider"
	"github.com/joaquinllenado/quickquiz-backend/internal/auth/provider/google"
	"github.com/joaquinllenado/quickquiz-backend/internal/auth/resolver"
	"github.com/joaquinllenado/quickquiz-backend/internal/config"
	"github.com/joaquinllenado/quickquiz-backend/internal/middleware"
	"github.com/joaquinllenado/quickquiz-backend/internal/session"
	"github.com/joaquinllenado/quickquiz-backend/internal/users"
)

func setupHTTP(ctx context.Context, cfg config.Config, log *slog.Logger) (http.Handler, func() error, error) {
	infra, err := setupInfra(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessionStore := session.NewPostgresStore(infra.DB)
	userService := users.NewService(infra.DB)
	identityResolver := resolver.NewDBResolver(infra.DB)

	var mail mailer.Mailer
	if cfg.PostmarkServerToken != "" {
		mail, err = mailer.NewPostmark(
			cfg.PostmarkServerToken,
			cfg.PostmarkAccountToken,
			cfg.EmailFrom,
		)
		if err != nil {
			return nil, nil, err
		}
	} else {
		log.Warn("no postmark token configured, logging verification codes instead")
		mail = mailer.NewLog(log)
	}

	otpService := otp.NewService(
		otp.NewRedisStore(infra.Redis.Client),
		mail,
		cfg.OTPTTL,
	)

	var oauthProviders []provider.OAuthProvider
	if cfg.GoogleClientID != "" {
		googleProvider, err := google.New(
			ctx,
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			log,
		)
		if err != nil {
			return nil, nil, err
		}
		oauthProviders = append(oauthProviders, googleProvider)
	}
	registry := provider.NewRegistry(oauthProviders...)

	authMiddleware := middleware.NewAuthMiddleware(sessionStore, log)

	authHandler := handler.New(handler.Deps{
		Providers:     registry,
		Sessions:      sessionStore,
		Resolver:      identityResolver,
		Users:         userService,
		Codes:         otpService,
		Log:           log,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
	})

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Server is healthy.",
		})
	})

	authHandler.RegisterRoutes(router, authMiddleware)

	// Browser clients authenticate with cookies, so CORS must allow
	// credentials and pin the origin.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)

	return corsHandler, func() error {
		return infra.DB.Close()
	}, nil
}
