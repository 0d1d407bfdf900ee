package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/aidashboard/dashboard-auth/internal/config"
	"github.com/aidashboard/dashboard-auth/internal/database"
	"github.com/aidashboard/dashboard-auth/internal/http/handler"
	"github.com/aidashboard/dashboard-auth/internal/http/middleware"
	"github.com/aidashboard/dashboard-auth/internal/http/router"
	"github.com/aidashboard/dashboard-auth/internal/idgen"
	"github.com/aidashboard/dashboard-auth/internal/mailer"
	"github.com/aidashboard/dashboard-auth/internal/repository"
	"github.com/aidashboard/dashboard-auth/internal/security"
	"github.com/aidashboard/dashboard-auth/internal/service"
)

// RateLimitMiddleware guards the unauthenticated auth routes.
type RateLimitMiddleware func(http.Handler) http.Handler

var StoreSet = wire.NewSet(
	provideDB,
	provideRedis,
	repository.NewUserRepository,
	repository.NewCredentialRepository,
	repository.NewOAuthLinkRepository,
	repository.NewSessionRepository,
	provideSecretStore,
	wire.Bind(new(service.SecretStore), new(*service.RedisSecretStore)),
)

var SecuritySet = wire.NewSet(
	provideHasher,
	wire.Bind(new(security.Hasher), new(*security.Argon2Hasher)),
	provideJWT,
	provideIDs,
	wire.Bind(new(idgen.Generator), new(*idgen.SnowflakeGenerator)),
	provideCookies,
)

var ServiceSet = wire.NewSet(
	service.NewTokenService,
	wire.Bind(new(service.ResetTokens), new(*service.TokenService)),
	service.NewUserService,
	provideOTP,
	service.NewVerificationService,
	service.NewSessionService,
	provideCredentialService,
	provideOAuth,
	provideMailSender,
	provideEmailDispatcher,
)

var HTTPSet = wire.NewSet(
	provideAuthHandler,
	handler.NewUserHandler,
	provideRateLimiter,
	provideRouter,
	provideHTTPServer,
)

func provideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := database.Open(database.Options{
		URL:         cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		ConnMaxIdle: cfg.DatabaseConnIdle,
	})
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = database.Close(db) }, nil
}

func provideRedis(cfg *config.Config) (redis.UniversalClient, func()) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }
}

func provideSecretStore(cfg *config.Config, client redis.UniversalClient) *service.RedisSecretStore {
	return service.NewRedisSecretStore(client, cfg.RedisKeyPrefix)
}

func provideHasher(cfg *config.Config) *security.Argon2Hasher {
	return security.NewArgon2Hasher(security.Argon2Params{
		MemoryKB:    cfg.Argon2MemoryKB,
		Time:        cfg.Argon2Time,
		Parallelism: cfg.Argon2Parallelism,
		Concurrency: cfg.HashConcurrency,
	})
}

func provideJWT(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(security.JWTOptions{
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Access:   security.TokenPolicy{Secret: []byte(cfg.AccessSecret), TTL: cfg.AccessTTL},
		Refresh:  security.TokenPolicy{Secret: []byte(cfg.RefreshSecret), TTL: cfg.RefreshTTL},
		Reset:    security.TokenPolicy{Secret: []byte(cfg.ResetSecret), TTL: cfg.ResetTTL},
	})
}

func provideIDs(cfg *config.Config) (*idgen.SnowflakeGenerator, error) {
	return idgen.NewSnowflakeGenerator(cfg.SnowflakeNode)
}

func provideCookies(cfg *config.Config, jwt *security.JWTManager) *security.CookieManager {
	return security.NewCookieManager(cfg.IsProduction(), jwt.TTL(security.TokenRefresh))
}

func provideOTP(cfg *config.Config, store service.SecretStore, hasher security.Hasher) *service.OTPService {
	return service.NewOTPService(store, hasher, cfg.OTPTTL, cfg.OTPMaxAttempts)
}

func provideCredentialService(cfg *config.Config, users repository.UserRepository, credentials repository.CredentialRepository, store service.SecretStore, hasher security.Hasher, tokens service.ResetTokens) *service.CredentialService {
	return service.NewCredentialService(users, credentials, store, hasher, tokens, cfg.ResetGrantTTL)
}

// provideOAuth returns nil when Google sign-in is off; the handlers answer
// OAUTH_DISABLED in that case.
func provideOAuth(cfg *config.Config, users repository.UserRepository, links repository.OAuthLinkRepository, ids idgen.Generator) *service.OAuthService {
	if !cfg.AuthGoogleEnabled {
		return nil
	}
	provider := service.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	return service.NewOAuthService(provider, users, links, ids)
}

func provideMailSender(cfg *config.Config, logger *slog.Logger) mailer.Sender {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set, emails are logged instead of sent")
		return mailer.NewLogMailer(logger)
	}
	return mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func provideEmailDispatcher(cfg *config.Config, sender mailer.Sender, logger *slog.Logger) *service.EmailDispatcher {
	return service.NewEmailDispatcher(sender, logger, cfg.MailSendTimeout, cfg.OTPTTL)
}

func provideAuthHandler(
	cfg *config.Config,
	users *service.UserService,
	credentials *service.CredentialService,
	tokens *service.TokenService,
	otp *service.OTPService,
	verification *service.VerificationService,
	oauth *service.OAuthService,
	mail *service.EmailDispatcher,
	cookies *security.CookieManager,
) *handler.AuthHandler {
	return handler.NewAuthHandler(handler.AuthDeps{
		Users:              users,
		Credentials:        credentials,
		Tokens:             tokens,
		OTP:                otp,
		Verification:       verification,
		OAuth:              oauth,
		Mailer:             mail,
		Cookies:            cookies,
		FrontendURL:        cfg.FrontendURL,
		RevealUnknownEmail: cfg.ResetRevealUnknownEmail,
	})
}

// provideRateLimiter shares the auth window across replicas through redis.
// A redis outage lets traffic through rather than locking users out.
func provideRateLimiter(cfg *config.Config, client redis.UniversalClient) RateLimitMiddleware {
	limiter := middleware.NewRedisLimiter(client, cfg.RedisKeyPrefix)
	return middleware.NewDistributedRateLimiter(limiter, cfg.AuthRateLimitRPM, time.Minute, middleware.FailOpen, "auth").Middleware()
}

func provideRouter(
	cfg *config.Config,
	auth *handler.AuthHandler,
	users *handler.UserHandler,
	tokens *service.TokenService,
	cookies *security.CookieManager,
	limiter RateLimitMiddleware,
	db *gorm.DB,
	store *service.RedisSecretStore,
) http.Handler {
	return router.NewRouter(router.Dependencies{
		AuthHandler:      auth,
		UserHandler:      users,
		Tokens:           tokens,
		Cookies:          cookies,
		CORSOrigins:      cfg.CORSOrigins,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		AuthRateLimiter:  limiter,
		Readiness: []router.Probe{
			{Name: "database", Check: database.Ping(db)},
			{Name: "redis", Check: store.Ping},
		},
		EnableOTelHTTP: cfg.OTELTracingEnabled || cfg.OTELMetricsEnabled,
	})
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
