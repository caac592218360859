package config

import (
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

// RoutingConfig holds the process-level routing constants. The live
// dispatch mode and fan-out live in the "config/routing" document and are
// editable at runtime; defaultMode and broadcastCount only seed that
// document on first start.
type RoutingConfig struct {
	DefaultMode           string `mapstructure:"defaultMode"`
	BroadcastCount        int    `mapstructure:"broadcastCount"`
	ResponseWindowMinutes int    `mapstructure:"responseWindowMinutes"`
	SweepIntervalSeconds  int    `mapstructure:"sweepIntervalSeconds"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	S3      S3Config      `mapstructure:"s3"`
	Routing RoutingConfig `mapstructure:"routing"`
}

// LoadConfig reads config.yaml from path and overlays environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	viper.BindEnv("mongo.uri", "MONGO_URI")
	viper.BindEnv("mongo.dbName", "MONGO_DBNAME")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	viper.BindEnv("s3.bucket", "S3_BUCKET")
	viper.BindEnv("s3.region", "S3_REGION")
	viper.BindEnv("s3.accessKeyID", "S3_ACCESS_KEY_ID")
	viper.BindEnv("s3.secretAccessKey", "S3_SECRET_ACCESS_KEY")
	viper.BindEnv("s3.cloudFrontDomain", "S3_CLOUDFRONT_DOMAIN")
	viper.BindEnv("routing.defaultMode", "ROUTING_DEFAULT_MODE")
	viper.BindEnv("routing.broadcastCount", "ROUTING_BROADCAST_COUNT")
	viper.BindEnv("routing.responseWindowMinutes", "ROUTING_RESPONSE_WINDOW_MINUTES")
	viper.BindEnv("routing.sweepIntervalSeconds", "ROUTING_SWEEP_INTERVAL_SECONDS")

	viper.SetDefault("routing.defaultMode", "round-robin")
	viper.SetDefault("routing.broadcastCount", 3)
	viper.SetDefault("routing.responseWindowMinutes", 5)
	viper.SetDefault("routing.sweepIntervalSeconds", 1)

	// If config.yaml is absent, run on environment variables alone.
	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return
}
