package shared

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const CONFIG_PREFIX = "TCUIDA"

type AppConfig struct {
	ListenAddress string `split_words:"true" default:"0.0.0.0:8080"`

	PgUsername             string `split_words:"true" default:"postgres"`
	PgPassword             string `split_words:"true" default:"postgres"`
	PgContactPoint         string `split_words:"true" default:"127.0.0.1"`
	PgContactPort          string `split_words:"true" default:"5432"`
	PgDbName               string `split_words:"true" default:"tcuida"`
	SqlMigrationsSourceDir string `split_words:"true" default:"./sql"`
	StartupMigration       bool   `split_words:"true" default:"false"`

	TokenSecret     string        `split_words:"true" required:"true"`
	TokenValidity   time.Duration `split_words:"true" default:"24h"`
	DefaultTimezone string        `split_words:"true" default:"America/Mexico_City"`

	GcpProjectID         string `split_words:"true" default:"t-cuida"`
	BucketName           string `split_words:"true" default:"tcuida-daily-logs"`
	BucketServiceAccount string `split_words:"true"`
	LocalStoragePath     string `split_words:"true"`

	PubSubTopic          string        `split_words:"true" default:"custody-events"`
	PubSubServiceAccount string        `split_words:"true"`
	PubSubPublishTimeout time.Duration `split_words:"true" default:"500ms"`

	OtelEndpoint string `split_words:"true"`
	OtelInsecure bool   `split_words:"true" default:"false"`
}

// InitAppConfiguration reads the environment, after loading a .env file when one is present.
func InitAppConfiguration() (config *AppConfig, err error) {
	if _, statErr := os.Stat(".env"); statErr == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %v", err)
		}
	}

	config = &AppConfig{}
	if err := envconfig.Process(CONFIG_PREFIX, config); err != nil {
		return nil, fmt.Errorf("failed to parse env vars: %v", err)
	}

	return
}

func (c *AppConfig) PostgresConnectString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.PgContactPoint,
		c.PgContactPort,
		c.PgUsername,
		c.PgPassword,
		c.PgDbName)
}

func (c *AppConfig) PostgresUrl() string {
	return fmt.Sprintf("postgres://%v:%v/%v?sslmode=disable&user=%s&password=%s",
		c.PgContactPoint, c.PgContactPort, c.PgDbName, c.PgUsername, c.PgPassword)
}
