package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"
	"github.com/joho/godotenv"

	"github.com/momomagic/momo/pkg"
	"github.com/momomagic/momo/services/order/internal/auth"
	"github.com/momomagic/momo/services/order/internal/menu"
	"github.com/momomagic/momo/services/order/internal/mongo"
	"github.com/momomagic/momo/services/order/internal/order"
	"github.com/momomagic/momo/services/order/internal/realtime"
	"github.com/momomagic/momo/services/order/internal/redis"
)

const (
	appNamespace = "ORDER"
	appName      = "order"
	appVersion   = "0.1.0"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	baseRepo := mongo.NewBaseRepo(config, logger)
	err = baseRepo.Start(ctx)
	if err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
	}

	repos := order.Repos{
		OrderRepo: mongo.NewOrderRepo(db),
		BillRepo:  mongo.NewBillRepo(db),
	}
	customerRepo := mongo.NewCustomerRepo(db)
	menuItemRepo := mongo.NewMenuItemRepo(db)

	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	pub, err := pkg.NewNATSPublisher(natsURL)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
	}

	sub, err := pkg.NewNATSSubscriber(natsURL, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS subscriber: %v", appName, appVersion, err)
	}

	// Redis is optional: without it billing runs unlocked and codes live in memory.
	var locker order.Locker
	var codeStore auth.CodeStore = auth.NewMemoryCodeStore()
	redisClient := redis.NewClient(config, logger)
	if err := redisClient.Start(ctx); err != nil {
		logger.Info("redis unavailable, billing lock disabled and codes kept in memory", "error", err)
	} else {
		locker = redis.NewLocker(redisClient.Redis(), durationOrDef(config, "redis.lock.ttl", redis.DefaultLockTTL), logger)
		codeStore = redis.NewCodeStore(redisClient.Redis())
	}

	tokens, err := auth.NewTokenIssuer(config.GetStringOrDef("auth.token.secret", ""), durationOrDef(config, "auth.token.ttl", auth.DefaultTokenTTL))
	if err != nil {
		log.Fatalf("%s(%s) cannot create token issuer: %v", appName, appVersion, err)
	}

	var sender auth.SMSSender = auth.NewLogSender(logger)
	if smsURL, _ := config.GetString("sms.url"); smsURL != "" {
		smsKey, _ := config.GetString("sms.apikey")
		sender = auth.NewHTTPSender(smsURL, smsKey, config.GetStringOrDef("sms.from", "MOMO"))
	}

	otp := auth.NewOTPService(codeStore, sender, auth.OTPConfig{
		Region:      config.GetStringOrDef("auth.phone.region", auth.DefaultRegion),
		TTL:         durationOrDef(config, "auth.otp.ttl", auth.DefaultCodeTTL),
		MaxAttempts: intOrDef(config, "auth.otp.attempts", auth.DefaultMaxAttempts),
	}, logger)

	adminUser, _ := config.GetString("admin.username")
	adminHash, _ := config.GetString("admin.password.hash")
	staff := auth.NewStaffAuthenticator(adminUser, adminHash)
	if !staff.Enabled() {
		logger.Info("staff login disabled, admin.username or admin.password.hash not set")
	}

	authHandler := auth.NewHandler(auth.HandlerDeps{
		OTP:       otp,
		Customers: customerRepo,
		Tokens:    tokens,
		Staff:     staff,
	}, logger)

	hub := realtime.NewHub(tokens, logger)
	relay := realtime.NewRelay(sub, hub, logger)

	billing := order.NewSessionBilling(repos.OrderRepo, repos.BillRepo, locker, pub, logger)
	orderHandler := order.NewHandler(order.HandlerDeps{
		Repos:     repos,
		Billing:   billing,
		Publisher: pub,
		StaffOnly: auth.RequireStaff(tokens),
	}, config, logger)

	menuHandler := menu.NewHandler(menuItemRepo, logger)

	publisherLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	}

	subLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return sub.Close()
		},
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: logger,
		// Diners call this service straight from the browser.
		DisableCORS: false,
	})

	lifecycles := []interface{}{
		apt.LifecycleHooks{OnStop: baseRepo.Stop},
		apt.LifecycleHooks{OnStop: redisClient.Stop},
		apt.LifecycleHooks{OnStop: hub.Stop},
		relay,
		publisherLifecycle,
		subLifecycle,
	}

	demoEnabled, _ := config.GetString("seeding.demo")
	if demoEnabled == "true" {
		logger.Info("Demo seeding enabled for order service")
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStart: menu.SeedingFunc(appName, baseRepo.GetDatabase, logger),
		})
	}

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", orderHandler, menuHandler, authHandler, hub),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}

func durationOrDef(config *apt.Config, key string, def time.Duration) time.Duration {
	raw, _ := config.GetString(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func intOrDef(config *apt.Config, key string, def int) int {
	raw, _ := config.GetString(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
