package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cear54/api-t-cuida/api/authentication"
	"github.com/cear54/api-t-cuida/api/custody"
	"github.com/cear54/api-t-cuida/api/sessions"
	. "github.com/cear54/api-t-cuida/api/shared"
	"github.com/cear54/api-t-cuida/api/users"
	"github.com/cear54/api-t-cuida/common/claims"
	"github.com/cear54/api-t-cuida/common/dates"
	"github.com/cear54/api-t-cuida/common/generator"
	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/messaging"
	"github.com/cear54/api-t-cuida/common/metrics"
	"github.com/cear54/api-t-cuida/common/storage"
	"github.com/cear54/api-t-cuida/common/store"
	"github.com/cear54/api-t-cuida/common/store/migrations"
	"github.com/cear54/api-t-cuida/common/subscriptions"
	"github.com/cear54/api-t-cuida/common/telemetry"
	"github.com/cear54/api-t-cuida/common/tokens"

	"github.com/facebookgo/inject"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "tcuida-api"

var (
	ctx             = context.Background()
	logger          = log.NewLogger(serviceName)
	config          *AppConfig
	db              *gorm.DB
	stringGenerator = &generator.StringGenerator{}
	calendar        *dates.Calendar
	tokenService    *tokens.Service
	photoStorage    storage.Storage
	publisher       messaging.Publisher
	shutdownTracing telemetry.ShutdownFunc

	dbStore        = &store.Store{}
	gate           = &subscriptions.Gate{}
	custodyService = &custody.CustodyService{}
	sessionService = &sessions.SessionService{}
	userService    = &users.UserService{}

	custodyHandlerFactory = &custody.HandlerFactory{}
	sessionHandlerFactory = &sessions.HandlerFactory{}
	userHandlerFactory    = &users.HandlerFactory{}

	authenticator = &authentication.Authenticator{}
)

func init() {
	checkErrAndExit(initAppConfiguration())
	checkErrAndExit(initTelemetry())
	checkErrAndExit(initPostgresConnection())
	checkErrAndExit(initCalendar())
	checkErrAndExit(initTokens())
	checkErrAndExit(initStorage())
	checkErrAndExit(initPublisher())
	checkErrAndExit(initApplicationGraph())
}

func initAppConfiguration() (err error) {
	config, err = InitAppConfiguration()
	return
}

func initTelemetry() (err error) {
	shutdownTracing, err = telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Endpoint:    config.OtelEndpoint,
		Insecure:    config.OtelInsecure,
	})
	return
}

func initPostgresConnection() (err error) {
	db, err = gorm.Open("postgres", config.PostgresConnectString())
	if err != nil {
		return
	}

	db.LogMode(true)
	db.SetLogger(logger)
	return
}

func initCalendar() (err error) {
	calendar, err = dates.NewCalendar(config.DefaultTimezone)
	return
}

func initTokens() (err error) {
	tokenService, err = tokens.New(tokens.Options{
		Secret:   config.TokenSecret,
		Validity: config.TokenValidity,
	})
	return
}

func initStorage() error {
	if config.LocalStoragePath != "" {
		logger.Warn(ctx, "storing daily log photos on the local filesystem", "path", config.LocalStoragePath)
		photoStorage = &storage.LocalStorage{Root: config.LocalStoragePath}
		return nil
	}
	gcsStorage, err := storage.New(ctx, storage.Options{
		BucketName:      config.BucketName,
		CredentialsFile: config.BucketServiceAccount,
	})
	if err != nil {
		return err
	}
	photoStorage = gcsStorage
	return nil
}

func initPublisher() error {
	if config.PubSubTopic == "" {
		logger.Warn(ctx, "no pubsub topic configured, custody events will not be published")
		publisher = &messaging.Discard{}
		return nil
	}
	client, err := messaging.New(ctx, messaging.ClientOptions{
		ProjectID:      config.GcpProjectID,
		Topic:          config.PubSubTopic,
		CredentialPath: config.PubSubServiceAccount,
	})
	if err != nil {
		return err
	}
	publisher = client
	custodyService.PublishTimeout = config.PubSubPublishTimeout
	return nil
}

func initApplicationGraph() error {
	g := inject.Graph{}
	err := g.Provide(
		&inject.Object{Value: config},
		&inject.Object{Value: db},
		&inject.Object{Value: stringGenerator},
		&inject.Object{Value: dbStore},
		&inject.Object{Value: calendar},
		&inject.Object{Value: tokenService},
		&inject.Object{Value: photoStorage},
		&inject.Object{Value: publisher},
		&inject.Object{Value: gate},
		&inject.Object{Value: custodyService},
		&inject.Object{Value: sessionService},
		&inject.Object{Value: userService},
		&inject.Object{Value: custodyHandlerFactory},
		&inject.Object{Value: sessionHandlerFactory},
		&inject.Object{Value: userHandlerFactory},
		&inject.Object{Value: authenticator},
		&inject.Object{Value: logger},
	)
	if err != nil {
		return errors.Wrap(err, "failed to provide")
	}
	if err := g.Populate(); err != nil {
		return errors.Wrap(err, "failed to populate")
	}
	return nil
}

func main() {
	if config.StartupMigration {
		applySqlSchemaMigrations(ctx)
	}
	startHttpServer(ctx)
}

func applySqlSchemaMigrations(ctx context.Context) {
	logger.Info(ctx, "applying sql schema migrations")
	migrationResult := migrations.Up(migrations.ApplyOptions{
		SourceURL:   fmt.Sprintf("file://%s", config.SqlMigrationsSourceDir),
		DatabaseURL: config.PostgresUrl(),
	})
	checkErrAndExit(migrationResult.Err)
	if !migrationResult.Changes {
		logger.Info(ctx, "no new migrations applied")
	}
	logger.Info(ctx, "sql schema ready", "version", migrationResult.Version, "dirty", migrationResult.Dirty)
}

func startHttpServer(ctx context.Context) {
	custodyOpts := []kithttp.ServerOption{
		kithttp.ServerErrorLogger(logger),
		kithttp.ServerErrorEncoder(custody.EncodeError),
	}

	sessionOpts := []kithttp.ServerOption{
		kithttp.ServerErrorLogger(logger),
		kithttp.ServerErrorEncoder(sessions.EncodeError),
	}

	userOpts := []kithttp.ServerOption{
		kithttp.ServerErrorLogger(logger),
		kithttp.ServerErrorEncoder(users.EncodeError),
	}

	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	router.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.DB().PingContext(r.Context()); err != nil {
			logger.Warn(r.Context(), "database is not reachable", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	apiRouterV1 := router.PathPrefix("/api/v1").Subrouter()

	apiRouterV1.Handle("/auth/login", sessionHandlerFactory.Login(sessionOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/auth/verify", authenticator.Require(sessionHandlerFactory.Verify(sessionOpts), claims.ViewSession)).Methods(http.MethodGet)

	apiRouterV1.Handle("/custody/check-in", authenticator.Gated(custodyHandlerFactory.CheckIn(custodyOpts), claims.CheckIn)).Methods(http.MethodPost)
	apiRouterV1.Handle("/custody/daily-log", authenticator.Gated(custodyHandlerFactory.SubmitDailyLog(custodyOpts), claims.SubmitDailyLog)).Methods(http.MethodPut)
	apiRouterV1.Handle("/custody/check-out", authenticator.Gated(custodyHandlerFactory.CheckOut(custodyOpts), claims.CheckOut)).Methods(http.MethodPost)
	apiRouterV1.Handle("/custody/status", authenticator.Gated(custodyHandlerFactory.DailyStatus(custodyOpts), claims.ReadDailyStatus)).Methods(http.MethodGet)
	apiRouterV1.Handle("/children/{childId}/custody", authenticator.Gated(custodyHandlerFactory.GetRecord(custodyOpts), claims.ReadCustodyRecord)).Methods(http.MethodGet)

	apiRouterV1.Handle("/users/me/device", authenticator.Require(userHandlerFactory.RegisterDevice(userOpts), claims.RegisterDevice)).Methods(http.MethodPut)
	apiRouterV1.Handle("/users/{userId}/status", authenticator.Require(userHandlerFactory.UpdateStatus(userOpts), claims.ManageAccounts)).Methods(http.MethodPut)

	server := &http.Server{
		Addr: config.ListenAddress,
		Handler: otelhttp.NewHandler(
			logger.RequestLoggerMiddleware(
				authenticator.Bearer(router, []string{"/healthz", "/readyz", "/metrics", "/api/v1/auth/login"}),
			),
			serviceName,
		),
	}

	go func() {
		logger.Info(ctx, "listening", "address", config.ListenAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			checkErrAndExit(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Err(ctx, "failed to shutdown http server", "err", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Err(ctx, "failed to flush traces", "err", err)
	}
	if closer, ok := publisher.(*messaging.Client); ok {
		closer.Close()
	}
	db.Close()
}

func checkErrAndExit(err error) {
	if err == nil {
		return
	}
	fmt.Println(err.Error())
	os.Exit(1)
}
