package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	App      App           `yaml:"app"`
	DB       *sql.DB       `yaml:"db"`
	Queue    *RabbitMQ     `yaml:"rabbitmq"`
	Storage  *minio.Client `yaml:"storage"`
	S3       S3            `yaml:"s3"`
	Server   Server        `yaml:"server"`
	Relay    Relay         `yaml:"relay"`
	Identity Identity      `yaml:"identity"`
	Chat     Chat          `yaml:"chat"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

// S3 carries the raw storage credentials because the relay's egress control
// plane needs them verbatim in the start-recording request.
type S3 struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
}

type Relay struct {
	Url            string `yaml:"url"`
	ApiKey         string `yaml:"api_key"`
	ApiSecret      string `yaml:"api_secret"`
	WebhookAuthKey string `yaml:"webhook_auth_key"`
}

type Identity struct {
	Url     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Chat struct {
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
	HistoryLimit    int           `yaml:"history_limit"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetDefault("chat.rate_limit_window_ms", 1000)
	viper.SetDefault("chat.history_limit", 500)
	viper.SetDefault("identity.timeout_ms", 3000)
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
		S3: S3{
			Endpoint:  viper.GetString("minio.url"),
			AccessKey: viper.GetString("minio.access_id"),
			SecretKey: viper.GetString("minio.secret_access_key"),
			Bucket:    viper.GetString("minio.bucket"),
		},
		Relay: Relay{
			Url:            viper.GetString("relay.url"),
			ApiKey:         viper.GetString("relay.api_key"),
			ApiSecret:      viper.GetString("relay.api_secret"),
			WebhookAuthKey: viper.GetString("relay.webhook_auth_key"),
		},
		Identity: Identity{
			Url:     viper.GetString("identity.url"),
			Timeout: time.Duration(viper.GetInt("identity.timeout_ms")) * time.Millisecond,
		},
		Chat: Chat{
			RateLimitWindow: time.Duration(viper.GetInt("chat.rate_limit_window_ms")) * time.Millisecond,
			HistoryLimit:    viper.GetInt("chat.history_limit"),
		},
	}, nil
}
