package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cear54/api-t-cuida/common/dates"
	"github.com/cear54/api-t-cuida/common/generator"
	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/messaging"
	"github.com/cear54/api-t-cuida/common/metrics"
	"github.com/cear54/api-t-cuida/common/notifications"
	"github.com/cear54/api-t-cuida/common/store"
	"github.com/cear54/api-t-cuida/common/telemetry"
	"github.com/cear54/api-t-cuida/event-manager/consumers"
	. "github.com/cear54/api-t-cuida/event-manager/shared"

	"github.com/facebookgo/inject"
	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/pkg/errors"
)

const serviceName = "tcuida-event-manager"

var (
	ctx, cancel     = context.WithCancel(context.Background())
	logger          = log.NewLogger(serviceName)
	config          *AppConfig
	db              *gorm.DB
	stringGenerator = &generator.StringGenerator{}
	calendar        *dates.Calendar
	shutdownTracing telemetry.ShutdownFunc

	dbStore            = &store.Store{}
	pubSubClient       *messaging.Client
	notificationSender *notifications.Sender

	consumer                   *consumers.Consumer
	custodyNotificationHandler *consumers.CustodyNotificationHandler
)

func init() {
	checkErrAndExit(initAppConfiguration())
	checkErrAndExit(initTelemetry())
	checkErrAndExit(initPostgresConnection())
	checkErrAndExit(initCalendar())
	checkErrAndExit(initPubSubClient())
	checkErrAndExit(initNotificationSender())
	checkErrAndExit(initConsumerStarter())
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

func initPubSubClient() (err error) {
	pubSubClient, err = messaging.New(ctx, messaging.ClientOptions{
		ProjectID:      config.GcpProjectID,
		Topic:          config.PubSubTopic,
		Subscription:   config.PubSubSubscription,
		CredentialPath: config.ServiceAccount,
	})
	if err != nil {
		return err
	}

	for {
		err := pubSubClient.EnsureTopicAndSubscription(ctx)
		if err == nil {
			break
		}
		logger.Warn(ctx, "topic and subscription are not ready", "err", err)
		time.Sleep(time.Second)
	}
	logger.Info(ctx, "subscription ready", "topic", config.PubSubTopic, "subscription", config.PubSubSubscription)
	return nil
}

func initNotificationSender() (err error) {
	notificationSender, err = notifications.New(ctx, notifications.Options{
		ProjectID:      config.GcpProjectID,
		CredentialPath: config.ServiceAccount,
	})
	return
}

func initConsumerStarter() (err error) {
	custodyNotificationHandler = &consumers.CustodyNotificationHandler{}
	consumer = &consumers.Consumer{}
	consumer.EventHandlers = append(consumer.EventHandlers, custodyNotificationHandler)
	return
}

func initApplicationGraph() error {
	g := inject.Graph{}
	err := g.Provide(
		&inject.Object{Value: config},
		&inject.Object{Value: db},
		&inject.Object{Value: stringGenerator},
		&inject.Object{Value: dbStore},
		&inject.Object{Value: calendar},
		&inject.Object{Value: pubSubClient},
		&inject.Object{Value: notificationSender},
		&inject.Object{Value: custodyNotificationHandler},
		&inject.Object{Value: consumer},
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
	go consumer.Start(ctx)
	startHttpServer(ctx)
}

func startHttpServer(ctx context.Context) {
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

	server := &http.Server{
		Addr:    config.ListenAddress,
		Handler: router,
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
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Err(shutdownCtx, "failed to shutdown http server", "err", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Err(shutdownCtx, "failed to flush traces", "err", err)
	}
	pubSubClient.Close()
	db.Close()
}

func checkErrAndExit(err error) {
	if err == nil {
		return
	}
	fmt.Println(err.Error())
	os.Exit(1)
}
