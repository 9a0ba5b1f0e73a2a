package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/campus-chat-api/internal/config"
	"github.com/campus-chat-api/internal/infrastructure/awsenv"
	"github.com/campus-chat-api/internal/infrastructure/dynamo"
	"github.com/campus-chat-api/internal/infrastructure/google"
	jwtinfra "github.com/campus-chat-api/internal/infrastructure/jwt"
	"github.com/campus-chat-api/internal/infrastructure/memory"
	"github.com/campus-chat-api/internal/infrastructure/notify"
	redisinfra "github.com/campus-chat-api/internal/infrastructure/redis"
	s3infra "github.com/campus-chat-api/internal/infrastructure/s3"
	"github.com/campus-chat-api/internal/infrastructure/smtp"
	"github.com/campus-chat-api/internal/infrastructure/sns"
	"github.com/campus-chat-api/internal/logger"
	transporthttp "github.com/campus-chat-api/internal/transport/http"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	if envErr != nil {
		log.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	awsCfg, err := awsenv.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		return err
	}

	deps := &transporthttp.Deps{Log: log}

	// Shared by the user and OTP repos; tables are created on first use.
	var ddb *dynamodb.Client
	dynamoDB := func() *dynamodb.Client {
		if ddb == nil {
			ddb = dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
			dynamo.Bootstrap(ctx, ddb, cfg.DynamoTables, log)
		}
		return ddb
	}

	// User documents.
	switch cfg.StoreBackend {
	case config.BackendDynamo:
		deps.UserRepo = dynamo.NewUserRepo(dynamoDB(), cfg.DynamoTables.Users, cfg.DynamoTables.Usernames)
	default:
		log.Warn("using in-memory user store; data is lost on restart")
		deps.UserRepo = memory.NewUserStore()
	}

	// Pending OTPs.
	var closers []func() error
	switch cfg.EffectiveOTPStore() {
	case config.BackendRedis:
		rdb, err := redisinfra.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		closers = append(closers, rdb.Close)
		deps.OTPRepo = redisinfra.NewOTPStore(rdb)
	case config.BackendDynamo:
		deps.OTPRepo = dynamo.NewOTPRepo(dynamoDB(), cfg.DynamoTables.OTPRequests)
	default:
		deps.OTPRepo = memory.NewOTPStore()
	}

	// Bearer credential verification.
	switch cfg.AuthProvider {
	case config.AuthGoogle:
		deps.Verifier = google.NewVerifier(cfg.GoogleClientID)
	default:
		v, err := jwtinfra.NewVerifier(cfg.AuthPublicKeyPath,
			jwtinfra.WithIssuer(cfg.AuthIssuer), jwtinfra.WithAudience(cfg.AuthAudience))
		if err != nil {
			return err
		}
		deps.Verifier = v
	}

	// OTP mail delivery.
	var sender notify.EmailSender
	switch cfg.MailDelivery {
	case config.DeliverySNS:
		snsCfg, err := awsenv.Load(ctx, cfg, cfg.SNSRegion)
		if err != nil {
			return err
		}
		sender = sns.NewPublisher(snsCfg, cfg.SNSTopicARN)
	case config.DeliveryLog:
		log.Warn("OTP emails are written to the log, not delivered")
		sender = notify.NewLogSender(log)
	default:
		sender = smtp.NewMailer(cfg)
	}
	dispatcher := notify.NewDispatcher(sender, cfg.OTPValidity, log)
	deps.Dispatcher = dispatcher

	// Profile pictures.
	if cfg.S3BucketName != "" {
		deps.Objects = s3infra.NewStore(s3infra.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.S3BucketName, cfg.S3PublicBaseURL)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("forced shutdown: %w", err))
	}
	// in-flight OTP emails finish before their stores go away
	if err := dispatcher.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	for _, c := range closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	log.Info("server stopped")
	return errors.Join(errs...)
}
