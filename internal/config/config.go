package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env  string `env:"ENV" default:"dev"`
	Port string `env:"PORT" default:"8080"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:""` // console | json (empty: by ENV)

	StateBackend string `env:"STATE_BACKEND" default:"memory"` // memory | mysql
	MySQLDSN     string `env:"DB_DSN" default:""`              // required when STATE_BACKEND=mysql

	// Optional: run migrations at startup (dev convenience)
	RunMigrations bool   `env:"RUN_MIGRATIONS" default:"false"`
	MigrationsDir string `env:"MIGRATIONS_DIR" default:"./migrations"`

	ImageHost ImageHostConfig
	Shopify   ShopifyConfig
	Amazon    AmazonConfig
	Feed      FeedConfig

	JWTPublicKeyEnv string `env:"JWT_PUBLIC_KEY_ENV" default:"JWT_PUBLIC_KEY_PEM"`

	// PushgatewayURL receives the lister's stage metrics after each run.
	PushgatewayURL string `env:"PUSHGATEWAY_URL" default:""`
}

type ImageHostConfig struct {
	Backend string `env:"IMAGE_HOST" default:"imgbb"` // imgbb | s3

	ImgBBKey string `env:"IMGBB_API_KEY"`
	ImgBBURL string `env:"IMGBB_URL" default:"https://api.imgbb.com/1/upload"`

	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION" default:"us-east-1"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
	S3Prefix        string `env:"S3_PREFIX" default:"listings"`
	S3PathStyle     bool   `env:"S3_PATH_STYLE" default:"true"`
}

type ShopifyConfig struct {
	Store      string `env:"SHOPIFY_STORE"`
	Token      string `env:"SHOPIFY_TOKEN"`
	APIVersion string `env:"SHOPIFY_API_VERSION" default:"2023-01"`
}

type AmazonConfig struct {
	ClientID      string `env:"LWA_CLIENT_ID"`
	ClientSecret  string `env:"LWA_CLIENT_SECRET"`
	RefreshToken  string `env:"LWA_REFRESH_TOKEN"`
	TokenURL      string `env:"LWA_TOKEN_URL" default:"https://api.amazon.com/auth/o2/token"`
	SellerID      string `env:"SELLER_ID"`
	MarketplaceID string `env:"MARKETPLACE_ID"`
	Endpoint      string `env:"SPAPI_ENDPOINT" default:"https://sellingpartnerapi-na.amazon.com"`

	RequestsPerSecond float64 `env:"SPAPI_RPS" default:"1"`
}

type FeedConfig struct {
	CatalogFile string `env:"CATALOG_FILE"`
	Encoding    string `env:"FEED_ENCODING" default:"tabular"` // tabular | json

	PollInterval time.Duration `env:"POLL_INTERVAL" default:"30s"`
	PollAttempts int           `env:"POLL_ATTEMPTS" default:"20"`

	RegisterRetryDelay time.Duration `env:"REGISTER_RETRY_DELAY" default:"5s"`
	RegisterRetries    int           `env:"REGISTER_RETRIES" default:"3"`
}

func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		Env:           v.GetString("ENV"),
		Port:          v.GetString("PORT"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
		StateBackend:  v.GetString("STATE_BACKEND"),
		MySQLDSN:      v.GetString("DB_DSN"),
		RunMigrations: v.GetBool("RUN_MIGRATIONS"),
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		ImageHost: ImageHostConfig{
			Backend:         strings.ToLower(v.GetString("IMAGE_HOST")),
			ImgBBKey:        v.GetString("IMGBB_API_KEY"),
			ImgBBURL:        v.GetString("IMGBB_URL"),
			S3Endpoint:      v.GetString("S3_ENDPOINT"),
			S3Bucket:        v.GetString("S3_BUCKET"),
			S3Region:        v.GetString("S3_REGION"),
			S3AccessKey:     v.GetString("S3_ACCESS_KEY"),
			S3SecretKey:     v.GetString("S3_SECRET_KEY"),
			S3PublicBaseURL: v.GetString("S3_PUBLIC_BASE_URL"),
			S3Prefix:        v.GetString("S3_PREFIX"),
			S3PathStyle:     v.GetBool("S3_PATH_STYLE"),
		},
		Shopify: ShopifyConfig{
			Store:      v.GetString("SHOPIFY_STORE"),
			Token:      v.GetString("SHOPIFY_TOKEN"),
			APIVersion: v.GetString("SHOPIFY_API_VERSION"),
		},
		Amazon: AmazonConfig{
			ClientID:          v.GetString("LWA_CLIENT_ID"),
			ClientSecret:      v.GetString("LWA_CLIENT_SECRET"),
			RefreshToken:      v.GetString("LWA_REFRESH_TOKEN"),
			TokenURL:          v.GetString("LWA_TOKEN_URL"),
			SellerID:          v.GetString("SELLER_ID"),
			MarketplaceID:     v.GetString("MARKETPLACE_ID"),
			Endpoint:          v.GetString("SPAPI_ENDPOINT"),
			RequestsPerSecond: v.GetFloat64("SPAPI_RPS"),
		},
		Feed: FeedConfig{
			CatalogFile:        v.GetString("CATALOG_FILE"),
			Encoding:           strings.ToLower(v.GetString("FEED_ENCODING")),
			PollInterval:       v.GetDuration("POLL_INTERVAL"),
			PollAttempts:       v.GetInt("POLL_ATTEMPTS"),
			RegisterRetryDelay: v.GetDuration("REGISTER_RETRY_DELAY"),
			RegisterRetries:    v.GetInt("REGISTER_RETRIES"),
		},
		JWTPublicKeyEnv: v.GetString("JWT_PUBLIC_KEY_ENV"),
		PushgatewayURL:  v.GetString("PUSHGATEWAY_URL"),
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STATE_BACKEND", "memory")
	v.SetDefault("RUN_MIGRATIONS", false)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	v.SetDefault("IMAGE_HOST", "imgbb")
	v.SetDefault("IMGBB_URL", "https://api.imgbb.com/1/upload")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PREFIX", "listings")
	v.SetDefault("S3_PATH_STYLE", true)

	v.SetDefault("SHOPIFY_API_VERSION", "2023-01")

	v.SetDefault("LWA_TOKEN_URL", "https://api.amazon.com/auth/o2/token")
	v.SetDefault("SPAPI_ENDPOINT", "https://sellingpartnerapi-na.amazon.com")
	v.SetDefault("SPAPI_RPS", 1.0)

	v.SetDefault("FEED_ENCODING", "tabular")
	v.SetDefault("POLL_INTERVAL", 30*time.Second)
	v.SetDefault("POLL_ATTEMPTS", 20)
	v.SetDefault("REGISTER_RETRY_DELAY", 5*time.Second)
	v.SetDefault("REGISTER_RETRIES", 3)

	v.SetDefault("JWT_PUBLIC_KEY_ENV", "JWT_PUBLIC_KEY_PEM")
}
