package shared

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const CONFIG_PREFIX = "TCUIDA_EVENT_MANAGER"

type AppConfig struct {
	ListenAddress string `split_words:"true" default:"0.0.0.0:8081"`

	PgUsername     string `split_words:"true" default:"postgres"`
	PgPassword     string `split_words:"true" default:"postgres"`
	PgContactPoint string `split_words:"true" default:"127.0.0.1"`
	PgContactPort  string `split_words:"true" default:"5432"`
	PgDbName       string `split_words:"true" default:"tcuida"`

	DefaultTimezone string `split_words:"true" default:"America/Mexico_City"`

	GcpProjectID       string `split_words:"true" default:"t-cuida"`
	PubSubTopic        string `split_words:"true" default:"custody-events"`
	PubSubSubscription string `split_words:"true" default:"custody-notifications"`
	ServiceAccount     string `split_words:"true"`

	OtelEndpoint string `split_words:"true"`
	OtelInsecure bool   `split_words:"true" default:"false"`
}

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
