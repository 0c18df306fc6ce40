package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"eventhub/config"
	_ "eventhub/docs"
	"eventhub/internal/adapters/auth"
	"eventhub/internal/adapters/email"
	deliveryhttp "eventhub/internal/delivery/http"
	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/domain"
	"eventhub/internal/notify"
	"eventhub/internal/repository/migrations"
	"eventhub/internal/repository/postgres"
	"eventhub/internal/repository/sqlite"
	"eventhub/internal/services"
)

// @title EventHub API
// @version 1.0
// @description Event registration service: events, capacity-limited registrations, attendance and administration.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("eventhub stopped", "err", err)
		os.Exit(1)
	}
}

// stores groups the repositories of one backing database.
type stores struct {
	users         domain.UserRepository
	events        domain.EventRepository
	categories    domain.CategoryRepository
	registrations domain.EventRegistrationRepository
	tx            domain.RegistrationStore
}

func openStores(ctx context.Context, cfg *config.Config) (*sql.DB, stores, error) {
	switch cfg.DBDriver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.DBUrl)
		if err != nil {
			return nil, stores{}, err
		}
		return db, stores{
			users:         sqlite.NewUserRepository(db),
			events:        sqlite.NewEventRepository(db),
			categories:    sqlite.NewCategoryRepository(db),
			registrations: sqlite.NewEventRegistrationRepository(db),
			tx:            sqlite.NewRegistrationStore(db, cfg.LockTimeout),
		}, nil
	default:
		db, err := postgres.Open(ctx, cfg.DBUrl)
		if err != nil {
			return nil, stores{}, err
		}
		return db, stores{
			users:         postgres.NewUserRepository(db),
			events:        postgres.NewEventRepository(db),
			categories:    postgres.NewCategoryRepository(db),
			registrations: postgres.NewEventRegistrationRepository(db),
			tx:            postgres.NewRegistrationStore(db, cfg.LockTimeout),
		}, nil
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(ctx, db, cfg.DBDriver); err != nil {
		return err
	}
	logger.Info("database ready", "driver", cfg.DBDriver)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.MailProvider,
		FromAddress: cfg.MailFromAddress,
		FromName:    cfg.MailFromName,
		SES: email.SESConfig{
			Region:             cfg.AWSRegion,
			AccessKeyID:        cfg.AWSAccessKeyID,
			SecretAccessKey:    cfg.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	renderer := email.NewTemplateRenderer(email.AppInfo{Name: cfg.AppName, URL: cfg.AppURL})
	dispatcher := notify.NewDispatcher(renderer, mailer, logger, notify.Options{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
	})

	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	jwt := auth.NewJWT(cfg.JWTSecret)

	userSvc := services.NewUserService(st.users, hasher, logger)
	authSvc := services.NewAuthService(st.users, hasher, jwt, cfg.JWTExpiry, dispatcher, logger)
	eventSvc := services.NewEventService(st.events, st.categories, st.tx, logger, cfg.RequestTimeout)
	attendeeSvc := services.NewAttendeeService(st.tx, st.events, st.registrations, st.users, dispatcher, logger)
	categorySvc := services.NewCategoryService(st.categories)

	if err := bootstrapAdmin(ctx, cfg, st.users, userSvc, logger); err != nil {
		return err
	}

	handler := deliveryhttp.NewRouter(deliveryhttp.RouterConfig{
		Logger:         logger,
		Verifier:       jwt,
		Users:          authSvc,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Auth:           controllers.NewAuthController(logger, authSvc),
		Events:         controllers.NewEventController(logger, eventSvc),
		Attendees:      controllers.NewAttendeeController(logger, attendeeSvc),
		Categories:     controllers.NewCategoryController(logger, categorySvc),
		AdminUsers:     controllers.NewUserController(logger, userSvc),
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The dispatcher outlives the server so mails queued by in-flight requests still go out.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopDispatch()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// bootstrapAdmin creates the configured admin when the database has no active admin.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, users domain.UserRepository, userSvc domain.UserService, logger *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	admins, err := users.ListActiveAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(admins) > 0 {
		return nil
	}
	admin, err := userSvc.CreateUser(ctx, domain.UserInput{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     domain.RoleAdmin,
	}, time.Now())
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	logger.Info("created bootstrap admin", "user_id", admin.ID, "email", admin.Email)
	return nil
}
