package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"stackit-backend/config"
	"stackit-backend/controllers"
	"stackit-backend/controllers/admin"
	"stackit-backend/controllers/answers"
	"stackit-backend/controllers/authentication"
	"stackit-backend/controllers/notifications"
	"stackit-backend/controllers/questions"
	"stackit-backend/services"
	"stackit-backend/services/realtime"
)

var logger = loggo.GetLogger("stackit")

func main() {
	if err := run(); err != nil {
		logger.Criticalf("%s", errors.Details(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("STACKIT_CONFIG"))
	if err != nil {
		return errors.Annotate(err, "loading config")
	}
	logs, err := config.ConfigureLogging(cfg.Log)
	if err != nil {
		return errors.Trace(err)
	}
	defer logs.Close()

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		return errors.Trace(err)
	}
	if err := config.Migrate(db); err != nil {
		return errors.Trace(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Annotate(err, "database handle")
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler, err := newHandler(ctx, cfg, db)
	if err != nil {
		return errors.Trace(err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Open streams see a cancelled request context on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Annotate(err, "serving http")
		}
		return nil
	case sig := <-signals:
		logger.Infof("received %v, shutting down", sig)
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer done()
	return errors.Annotate(srv.Shutdown(shutdownCtx), "shutting down")
}

func newHandler(ctx context.Context, cfg *config.Config, db *gorm.DB) (http.Handler, error) {
	paginator := services.Paginator{
		DefaultPageSize: cfg.Pagination.DefaultPageSize,
		MaxPageSize:     cfg.Pagination.MaxPageSize,
	}

	metrics := realtime.NewMetrics()
	registry := realtime.NewRegistry(realtime.RegistryConfig{
		BufferSize: cfg.Stream.BufferSize,
		Clock:      clock.WallClock,
		Metrics:    metrics,
	})
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mailer := services.NewMailer(cfg.Mail)
	notificationService := &services.NotificationService{
		DB:        db,
		Publisher: realtime.NewPublisher(registry),
		Paginator: paginator,
		Mailer:    mailer,
	}
	userService := &services.UserService{
		DB:        db,
		Mailer:    mailer,
		Paginator: paginator,
	}
	questionService := &services.QuestionService{DB: db, Paginator: paginator}
	answerService := &services.AnswerService{
		DB:            db,
		Notifications: notificationService,
		Paginator:     paginator,
	}

	var store services.ImageStore = &services.LocalImageStore{
		Dir:     cfg.Uploads.Dir,
		BaseURL: cfg.Uploads.BaseURL,
	}
	uploadDir := cfg.Uploads.Dir
	if cfg.Google.DriveCredentialsFile != "" {
		drive, err := services.NewDriveImageStore(ctx, cfg.Google.DriveCredentialsFile, cfg.Google.DriveFolderID)
		if err != nil {
			return nil, errors.Trace(err)
		}
		store, uploadDir = drive, ""
		logger.Infof("storing images in google drive")
	}

	sessions := config.NewSessionStore(cfg.Auth)
	auth := &authentication.Authenticator{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TTL:      cfg.Auth.TokenTTL,
		Users:    userService,
		Sessions: sessions,
	}
	accounts := &authentication.Handler{
		Auth:      auth,
		Users:     userService,
		Questions: questionService,
		Answers:   answerService,
		Paginator: paginator,
	}

	var google *authentication.GoogleAuth
	if cfg.Google.ClientID != "" {
		google = &authentication.GoogleAuth{
			Config:   authentication.NewGoogleOAuthConfig(cfg.Google),
			Sessions: sessions,
			Handler:  accounts,
		}
	}

	return controllers.NewRouter(controllers.Deps{
		Auth:     auth,
		Accounts: accounts,
		Google:   google,
		Limiter:  authentication.NewRateLimiter(cfg.Auth.LoginPerMinute),
		Questions: &questions.Handler{
			Questions: questionService,
			Uploader: &services.ImageUploader{
				Store:    store,
				MaxBytes: cfg.Uploads.MaxBytes,
				MaxWidth: cfg.Uploads.MaxWidth,
			},
			Paginator: paginator,
		},
		Answers: &answers.Handler{Answers: answerService},
		Notifications: &notifications.Handler{
			Notifications: notificationService,
			Paginator:     paginator,
		},
		Stream:  &notifications.Stream{Registry: registry, Heartbeat: cfg.Stream.Heartbeat},
		Admin:   &admin.Handler{Users: userService},
		Metrics: promRegistry,
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		UploadDir:   uploadDir,
		CORSOrigins: cfg.Server.CORSOrigins,
	}), nil
}
