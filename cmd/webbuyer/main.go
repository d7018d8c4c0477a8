package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/slogsolutions/WebBuyer/internal/app/idempotency"
	appoutbox "github.com/slogsolutions/WebBuyer/internal/app/outbox"
	"github.com/slogsolutions/WebBuyer/internal/app/policies"
	authsvc "github.com/slogsolutions/WebBuyer/internal/app/services/auth"
	bookingsvc "github.com/slogsolutions/WebBuyer/internal/app/services/booking"
	catalogsvc "github.com/slogsolutions/WebBuyer/internal/app/services/catalog"
	"github.com/slogsolutions/WebBuyer/internal/app/summary"
	domainauth "github.com/slogsolutions/WebBuyer/internal/domain/auth"
	"github.com/slogsolutions/WebBuyer/internal/domain/media"
	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/money"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
	"github.com/slogsolutions/WebBuyer/internal/domain/user"
	"github.com/slogsolutions/WebBuyer/internal/infra/broker/kafka"
	"github.com/slogsolutions/WebBuyer/internal/infra/config"
	mongodb "github.com/slogsolutions/WebBuyer/internal/infra/db/mongo"
	ginserver "github.com/slogsolutions/WebBuyer/internal/infra/http/gin"
	"github.com/slogsolutions/WebBuyer/internal/infra/obs"
	outboxstore "github.com/slogsolutions/WebBuyer/internal/infra/outbox"
	"github.com/slogsolutions/WebBuyer/internal/infra/ratingsapi"
	"github.com/slogsolutions/WebBuyer/internal/infra/security"
	"github.com/slogsolutions/WebBuyer/internal/infra/storage/memory"
	"github.com/slogsolutions/WebBuyer/internal/infra/storage/s3"
	"github.com/slogsolutions/WebBuyer/internal/infra/verify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg = fallbackConfig(env)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	if err := app.loadSeedFixtures(ctx, cfg.SeedFile, logger); err != nil {
		logger.Warn("seed fixtures load failed", "error", err, "path", cfg.SeedFile)
	}

	go app.worker.Run(ctx)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Checks:  app.checks,
		Timeout: 2 * time.Second,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		app.close(logger)
		os.Exit(1)
	}
	app.close(logger)
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	worker   *appoutbox.Worker
	notifier *verify.Notifier
	checks   map[string]obs.Check

	spaces space.Repository
	users  user.Repository
	hasher authsvc.PasswordHasher

	closers []func(context.Context) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	app := application{
		notifier: verify.NewNotifier(),
		checks:   map[string]obs.Check{},
		hasher:   security.BcryptHasher{},
	}

	var (
		spaces   space.Repository
		users    user.Repository
		sessions domainauth.SessionStore
		idem     idempotency.Store
		records  appoutbox.Store
	)
	switch cfg.StoreMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("connect mongo: %w", err)
		}
		app.closers = append(app.closers, client.Close)
		app.checks["mongo"] = client.Ping
		spaces = mongodb.NewSpaceRepository(client.DB)
		users = mongodb.NewUserRepository(client.DB)
		sessions = mongodb.NewSessionStore(client.DB)
		idem = mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		records = outboxstore.NewMongoStore(client.DB)
	default:
		spaces = memory.NewSpaceRepository()
		users = memory.NewUserRepository()
		sessions = memory.NewSessionStore()
		idem = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		records = memory.NewOutboxStore()
	}
	app.spaces = spaces
	app.users = users

	var publisher appoutbox.Publisher = logPublisher{logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return application{}, fmt.Errorf("connect kafka: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
		publisher = producer
	} else {
		logger.Warn("KAFKA_BROKERS not set, handoffs publish to the log")
	}
	if cfg.KafkaTopicPrefix != "" {
		publisher = prefixedPublisher{inner: publisher, prefix: cfg.KafkaTopicPrefix}
	}

	dispatcher := &appoutbox.Dispatcher{Store: records}
	app.worker = &appoutbox.Worker{
		Store:       records,
		Publisher:   publisher,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		MaxAttempts: cfg.OutboxMaxAttempts,
	}

	var credentials ratingsapi.CredentialSource
	switch {
	case cfg.RatingsJWTSecret != "":
		credentials = &ratingsapi.ServiceTokenMinter{
			Secret: []byte(cfg.RatingsJWTSecret),
			Issuer: cfg.RatingsJWTIssuer,
			TTL:    cfg.RatingsJWTTTL,
		}
	case cfg.RatingsStaticToken != "":
		credentials = ratingsapi.StaticCredentials{Value: cfg.RatingsStaticToken}
	}
	ratings := &ratingsapi.Client{
		BaseURL:     cfg.RatingsBaseURL,
		Client:      &http.Client{Timeout: cfg.RatingsTimeout},
		Credentials: credentials,
		Logger:      logger,
	}

	resolver := media.Resolver{
		APIBase:     cfg.MediaAPIBase,
		CloudName:   cfg.CloudinaryCloud,
		Placeholder: cfg.MediaPlaceholder,
	}
	formatter, err := money.NewFormatter(cfg.DisplayLocale, cfg.DisplayCurrency)
	if err != nil {
		return application{}, fmt.Errorf("display format: %w", err)
	}

	var uploader s3.Uploader = s3.NoopUploader{}
	if client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger); err != nil {
		logger.Warn("s3 uploader unavailable, photo uploads disabled", "error", err)
	} else {
		uploader = client
	}

	var verifier policies.PhoneVerifier
	if cfg.VerifyBaseURL != "" {
		verifier = &verify.Client{
			BaseURL: cfg.VerifyBaseURL,
			Client:  &http.Client{Timeout: cfg.VerifyTimeout},
			Logger:  logger,
		}
	} else {
		logger.Warn("VERIFY_BASE_URL not set, phone challenges disabled")
	}
	if cfg.VerifyGRPCAddr != "" {
		probe, err := verify.DialHealth(ctx, verify.ProbeConfig{
			Addr:        cfg.VerifyGRPCAddr,
			DialTimeout: cfg.VerifyGRPCDial,
		}, logger)
		if err != nil {
			logger.Warn("verify health probe unavailable", "error", err)
		} else {
			app.checks["verify"] = probe.Check
			app.closers = append(app.closers, func(context.Context) error { return probe.Close() })
		}
	}

	authService := &authsvc.Service{
		Users:      users,
		Sessions:   sessions,
		Passwords:  app.hasher,
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	catalogService := &catalogsvc.Service{Spaces: spaces, Uploader: uploader, Logger: logger}
	summaryService := summary.NewService(spaces, ratings, resolver, formatter, logger)
	bookingService := &bookingsvc.Service{
		Spaces:     spaces,
		Users:      users,
		Verifier:   verifier,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
	newCard := func() *summary.Card {
		return summary.NewCard(summary.CardDeps{
			Spaces:     spaces,
			Users:      users,
			Source:     ratings,
			Verifier:   verifier,
			Dispatcher: dispatcher,
			Resolver:   resolver,
			Formatter:  formatter,
			Logger:     logger,
		})
	}

	app.handlers = ginserver.Handlers{
		Auth:         ginserver.AuthHandler{Service: authService, Logger: logger},
		Space:        ginserver.SpaceHandler{Catalog: catalogService, Summary: summaryService, Resolver: resolver, Logger: logger},
		OwnerSpace:   ginserver.OwnerSpaceHandler{Service: catalogService, Resolver: resolver, Logger: logger},
		Booking:      ginserver.BookingHandler{Attempts: bookingService, Idempotency: idem, Logger: logger},
		Verification: ginserver.VerificationHandler{Auth: authService, Notifier: app.notifier, Logger: logger},
		SummaryWS: &ginserver.SummaryWSHandler{
			NewCard:  newCard,
			Auth:     authService,
			Notifier: app.notifier,
			Logger:   logger,
		},
		AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
	}
	return app, nil
}

func (a application) close(logger *slog.Logger) {
	a.notifier.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, closeFn := range a.closers {
		if err := closeFn(ctx); err != nil {
			logger.Warn("resource close failed", "error", err)
		}
	}
}

func (a application) loadSeedFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("seed file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("decode seed file: %w", err)
	}

	now := time.Now()
	for _, fx := range seed.Users {
		hash, err := a.hasher.Hash(fx.Password)
		if err != nil {
			logger.Error("seed user password hash failed", "user_id", fx.ID, "error", err)
			continue
		}
		roles := make([]user.Role, 0, len(fx.Roles))
		for _, role := range fx.Roles {
			roles = append(roles, user.Role(role))
		}
		seeded, err := user.NewUser(user.CreateParams{
			ID:           user.ID(fx.ID),
			Email:        fx.Email,
			Name:         fx.Name,
			Phone:        fx.Phone,
			PasswordHash: hash,
			Roles:        roles,
			CreatedAt:    now,
		})
		if err != nil {
			logger.Error("seed user invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if fx.IdentityVerified {
			seeded.MarkIdentityVerified(now)
		}
		if fx.PhoneVerified != nil {
			seeded.SetPhoneVerified(*fx.PhoneVerified, now)
		}
		if err := a.users.Save(ctx, seeded); err != nil {
			logger.Error("cannot store seed user", "user_id", fx.ID, "error", err)
			continue
		}
		logger.Info("seed user imported", "user_id", seeded.ID)
	}

	for _, fx := range seed.Spaces {
		sp, err := space.New(space.CreateParams{
			ID:          space.SpaceID(fx.ID),
			Owner:       space.OwnerID(fx.Owner),
			Title:       fx.Title,
			Description: fx.Description,
			Address: space.Address{
				Line1:   fx.Address.Line1,
				City:    fx.Address.City,
				Country: fx.Address.Country,
				Lat:     fx.Address.Lat,
				Lon:     fx.Address.Lon,
			},
			HourlyRate: fx.HourlyRate,
			Discount:   pricing.DiscountPercent(fx.DiscountPercent),
			Rating:     fx.Rating,
			Photos:     append([]media.Ref(nil), fx.Photos...),
			Features:   append([]string(nil), fx.Features...),
			Covered:    fx.Covered,
			EVCharging: fx.EVCharging,
			Now:        now,
		})
		if err != nil {
			logger.Error("seed space invalid", "space_id", fx.ID, "error", err)
			continue
		}
		if err := applyFixtureState(sp, fx.State, now); err != nil {
			logger.Error("seed space state invalid", "space_id", fx.ID, "state", fx.State, "error", err)
			continue
		}
		if err := a.spaces.Save(ctx, sp); err != nil {
			logger.Error("cannot store seed space", "space_id", fx.ID, "error", err)
			continue
		}
		logger.Info("seed space imported", "space_id", sp.ID, "state", sp.State)
	}
	return nil
}

// applyFixtureState walks a freshly built draft into the requested
// state. The seed file defaults to ACTIVE since drafts are invisible to
// drivers.
func applyFixtureState(sp *space.Space, state string, now time.Time) error {
	switch space.SpaceState(strings.ToUpper(strings.TrimSpace(state))) {
	case space.SpaceActive, "":
		return sp.Activate(now)
	case space.SpaceDraft:
		return nil
	case space.SpaceSuspended:
		if err := sp.Activate(now); err != nil {
			return err
		}
		return sp.Suspend(now)
	default:
		return fmt.Errorf("unknown state %q", state)
	}
}

type seedFile struct {
	Users  []userFixture  `json:"users"`
	Spaces []spaceFixture `json:"spaces"`
}

type userFixture struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	Name             string   `json:"name"`
	Phone            string   `json:"phone"`
	Password         string   `json:"password"`
	Roles            []string `json:"roles"`
	IdentityVerified bool     `json:"identity_verified"`
	PhoneVerified    *bool    `json:"phone_verified"`
}

type spaceFixture struct {
	ID              string         `json:"id"`
	Owner           string         `json:"owner"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Address         fixtureAddress `json:"address"`
	HourlyRate      float64        `json:"hourly_rate"`
	DiscountPercent float64        `json:"discount_percent"`
	Rating          float64        `json:"rating"`
	Photos          []media.Ref    `json:"photos"`
	Features        []string       `json:"features"`
	Covered         bool           `json:"covered"`
	EVCharging      bool           `json:"ev_charging"`
	State           string         `json:"state"`
}

type fixtureAddress struct {
	Line1   string  `json:"line1"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// logPublisher stands in for Kafka in broker-less dev runs.
type logPublisher struct {
	logger *slog.Logger
}

func (p logPublisher) Publish(_ context.Context, topic, key string, payload []byte) error {
	p.logger.Info("outbox record published to log", "topic", topic, "key", key, "bytes", len(payload))
	return nil
}

type prefixedPublisher struct {
	inner  appoutbox.Publisher
	prefix string
}

func (p prefixedPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	return p.inner.Publish(ctx, p.prefix+topic, key, payload)
}

func fallbackConfig(env string) config.Config {
	return config.Config{
		Env:                env,
		HTTPAddr:           ":8080",
		StoreMode:          "memory",
		SessionTTL:         24 * time.Hour,
		IdempotencyTTL:     168 * time.Hour,
		OutboxPollInterval: 2 * time.Second,
		OutboxMaxAttempts:  8,
		RatingsBaseURL:     "http://localhost:7005",
		RatingsTimeout:     5 * time.Second,
		MediaAPIBase:       "http://localhost:8080",
		MediaPlaceholder:   "/img/space-placeholder.png",
		DisplayLocale:      "en-IN",
		DisplayCurrency:    "INR",
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
