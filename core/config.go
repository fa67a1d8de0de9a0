package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string
		Addr               string
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		ProjectID       string
		CredentialsFile string
	}

	StorageConfig struct {
		Bucket          string
		PublicBaseURL   string
		CredentialsFile string
		DeleteTimeout   time.Duration
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	AuthConfig struct {
		// BaseURL of the external identity provider's admin API.
		BaseURL string
	}

	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string
		VocabCacheTTL    time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Redis    RedisConfig
		Auth     AuthConfig
	}
)

var Conf *Config

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Shule")
	v.SetDefault("secretKey", "x2m0#7d&1yrq)f+hs8_kl5ze(v4c^3wgj9nb6a*u!tp$o-i%e@")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("storageDeleteTimeout", 10*time.Second)
	v.SetDefault("vocabCacheTTL", 15*time.Minute)
	v.SetDefault("redisAddr", "localhost:6379")
	v.SetDefault("redisDB", 0)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		VocabCacheTTL:    v.GetDuration("vocabCacheTTL"),
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			Addr:               v.GetString("serverAddr"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			ProjectID:       v.GetString("databaseProjectId"),
			CredentialsFile: v.GetString("databaseCredentialsFile"),
		},
		Storage: StorageConfig{
			Bucket:          v.GetString("storageBucket"),
			PublicBaseURL:   v.GetString("storagePublicBaseURL"),
			CredentialsFile: v.GetString("storageCredentialsFile"),
			DeleteTimeout:   v.GetDuration("storageDeleteTimeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
		},
		Auth: AuthConfig{
			BaseURL: v.GetString("authBaseURL"),
		},
	}
}
