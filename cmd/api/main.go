package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"gearguard.io/internal/auth"
	"gearguard.io/internal/config"
	"gearguard.io/internal/gear"
	"gearguard.io/internal/httpapi"
	"gearguard.io/internal/migrate"
	"gearguard.io/internal/mq"
	"gearguard.io/internal/obs"
	"gearguard.io/internal/seed"
	"gearguard.io/internal/store/pg"
	"gearguard.io/internal/stream"
)

func main() {
	// .env необязателен
	_ = godotenv.Load()

	log := obs.Logger()
	cfg, warnings, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	if err := obs.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.WithError(err).Fatal("logging")
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	// Инициализация observability (регистрация метрик, build info)
	obs.Init()
	obs.SetBuildInfo(cfg.App.Version, cfg.App.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := obs.InitTracer(ctx, obs.TracerConfig{
		ServiceName: "gearguard-api",
		Version:     cfg.App.Version,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		log.WithError(err).Fatal("tracing")
	}

	store, closeStore := openStore(ctx, cfg)
	if cfg.Seed.Demo {
		if err := seed.Demo(ctx, store, time.Now()); err != nil {
			log.WithError(err).Fatal("seed demo data")
		}
	}

	codec, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL, nil)
	if err != nil {
		log.WithError(err).Fatal("token codec")
	}
	opts := []auth.ServiceOption{auth.WithAutoProvision(cfg.Auth.GoogleAutoProvision)}
	if cfg.Auth.GoogleClientID != "" {
		verifier, err := auth.NewGoogleVerifier(ctx, cfg.Auth.GoogleClientID)
		if err != nil {
			log.WithError(err).Fatal("google verifier")
		}
		opts = append(opts, auth.WithGoogleVerifier(verifier))
	}
	authSvc, err := auth.NewService(store, codec, opts...)
	if err != nil {
		log.WithError(err).Fatal("auth service")
	}

	var events gear.EventPublisher
	var publisher *mq.Publisher
	if cfg.AMQP.URL != "" {
		publisher, err = mq.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.WithError(err).Fatal("amqp")
		}
		events = publisher
		log.WithField("exchange", cfg.AMQP.Exchange).Info("publishing request events to rabbitmq")
	}

	proxies, err := httpapi.ParseTrustedProxies(cfg.TrustedProxies())
	if err != nil {
		log.WithError(err).Fatal("trusted proxies")
	}

	hub := stream.New()
	api := httpapi.New(httpapi.Deps{
		Auth:           authSvc,
		Store:          store,
		Events:         events,
		Stream:         hub,
		Version:        cfg.App.Version,
		Env:            cfg.App.Env,
		EnforceRoles:   cfg.Auth.EnforceRoles,
		CORSOrigins:    cfg.AllowedOrigins(),
		RateBurst:      cfg.RateLimit.Burst,
		RatePerSecond:  cfg.RateLimit.PerSecond,
		TrustedProxies: proxies,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	// Shutdown waits for active handlers; SSE handlers exit once the hub closes.
	srv.RegisterOnShutdown(hub.Close)

	var grpcSrv *grpc.Server
	if addr := cfg.GRPCAddr(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.WithError(err).Fatal("grpc listen")
		}
		grpcSrv = grpc.NewServer()
		httpapi.RegisterGRPC(grpcSrv, httpapi.NewHealthServer(httpapi.ReadyProbe{Store: store}))
		go func() {
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.WithError(err).Error("grpc serve")
			}
		}()
		log.WithField("addr", addr).Info("grpc health listening")
	}

	log.WithFields(logrus.Fields{
		"version": cfg.App.Version,
		"env":     cfg.App.Env,
		"addr":    srv.Addr,
	}).Info("starting gearguard-api")

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	_ = srv.Shutdown(shutdownCtx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	_ = shutdownTracer(shutdownCtx)
	closeStore()
	log.Info("stopped")
}

// openStore connects to PostgreSQL and applies pending migrations, or falls
// back to the in-memory store when no DATABASE_URL is set.
func openStore(ctx context.Context, cfg config.Config) (gear.Store, func()) {
	log := obs.Logger()
	if cfg.Database.URL == "" {
		log.Warn("using in-memory store; data is lost on restart")
		return gear.NewMemory(), func() {}
	}
	st, err := pg.Open(cfg.Database.URL)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := st.Ping(pingCtx); err != nil {
		log.WithError(err).Fatal("ping db")
	}
	if err := migrate.NewManager(st.DB()).Up(ctx); err != nil {
		log.WithError(err).Fatal("migrate")
	}
	return st, func() { _ = st.Close() }
}
