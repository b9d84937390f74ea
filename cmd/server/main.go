package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/luizasposito/sheep-management-system/internal/cache"
	"github.com/luizasposito/sheep-management-system/internal/config"
	"github.com/luizasposito/sheep-management-system/internal/database"
	"github.com/luizasposito/sheep-management-system/internal/handler"
	"github.com/luizasposito/sheep-management-system/internal/repository"
	"github.com/luizasposito/sheep-management-system/internal/revocation"
	"github.com/luizasposito/sheep-management-system/internal/router"
	"github.com/luizasposito/sheep-management-system/internal/service"
	"github.com/luizasposito/sheep-management-system/internal/telemetry"
)

const serviceName = "sheep-api"

func main() {
	envFiles := flag.StringSlice("env-file", nil, "dotenv file(s) to load before reading the environment")
	flag.Parse()

	cfg := config.Load(*envFiles...)

	shutdownTelemetry := telemetry.Setup(serviceName, telemetry.Options{
		Endpoint: cfg.OTLPEndpoint,
		Insecure: cfg.OTLPInsecure,
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
		log.Printf("schema up to date")
	}

	var rdb *redis.Client
	if cfg.RevocationBackend == revocation.BackendRedis || cfg.PrincipalCache.Enabled() {
		rdb, err = config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
	}

	var registry revocation.Registry
	switch cfg.RevocationBackend {
	case revocation.BackendRedis:
		registry = revocation.NewRedisRegistry(rdb, cfg.RevocationPrefix)
	case revocation.BackendMySQL:
		tokens := repository.NewTokenRepo(db)
		go sweep(ctx, time.Minute, func(now time.Time) (int, error) {
			return tokens.PurgeExpired(ctx, now)
		})
		registry = tokens
	default:
		mem := revocation.NewMemoryRegistry()
		go sweep(ctx, time.Minute, func(now time.Time) (int, error) {
			return mem.Cleanup(now), nil
		})
		registry = mem
	}
	log.Printf("revocation backend: %s", cfg.RevocationBackend)

	farmers := repository.NewFarmerRepo(db)
	vets := repository.NewVeterinarianRepo(db)
	sheep := repository.NewSheepRepo(db)
	groups := repository.NewSheepGroupRepo(db)

	auth := service.NewAuthService(repository.NewIdentityRepo(db), registry, service.AuthConfig{
		Tokens:        cfg.TokenConfig(),
		BcryptCost:    cfg.BcryptCost,
		LookupTimeout: cfg.IdentityLookupTimeout,
	})
	if cfg.PrincipalCache.Enabled() {
		auth.WithCache(cache.NewPrincipalCache(rdb, cfg.PrincipalCache.Prefix, cfg.PrincipalCache.TTL))
		log.Printf("principal cache enabled (ttl=%s)", cfg.PrincipalCache.TTL)
	}

	appointments := handler.NewAppointmentHandler(repository.NewAppointmentRepo(db), sheep, vets)
	if cfg.AMQPURL != "" {
		pub := service.NewAMQPPublisher(cfg.AMQPURL)
		auth.WithEvents(pub)
		appointments.Events = pub
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	level := glog.INFO
	if cfg.Env == "dev" {
		level = glog.DEBUG
	}
	e.Logger.SetLevel(level)
	auth.Logger().SetLevel(level)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infof("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(auth), auth)
	router.RegisterResources(e, router.Handlers{
		Farmers:        handler.NewFarmerHandler(farmers, cfg.BcryptCost),
		Veterinarians:  handler.NewVeterinarianHandler(vets, auth, cfg.BcryptCost),
		Inventory:      handler.NewInventoryHandler(repository.NewInventoryRepo(db)),
		Sheep:          handler.NewSheepHandler(sheep, groups),
		SheepGroups:    handler.NewSheepGroupHandler(groups),
		Sensors:        handler.NewSensorHandler(repository.NewSensorRepo(db)),
		Appointments:   appointments,
		MilkProduction: handler.NewMilkProductionHandler(repository.NewMilkRepo(db)),
	}, auth)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(e, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on %s (env=%s)", server.Addr, cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// sweep drops naturally expired entries from the revocation registry.
func sweep(ctx context.Context, every time.Duration, purge func(time.Time) (int, error)) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := purge(now)
			if err != nil {
				log.Printf("revocation: purge failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("revocation: dropped %d expired entries", n)
			}
		}
	}
}
