package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	Env         string // "dev" | "prod"

	JWTSecret                string
	AccessTokenExpireMinutes int
	RefreshTokenExpireDays   int

	RedisURL      string
	RedisPassword string
	RedisDB       int

	LoginRateLimit int // 每分钟登录尝试次数上限
}

func Load() *Config {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	accessExpire, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_EXPIRE_MINUTES", "30"))
	refreshExpire, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_EXPIRE_DAYS", "7"))
	loginRateLimit, _ := strconv.Atoi(getEnv("LOGIN_RATE_LIMIT", "10"))

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Env:         getEnv("ENV", "dev"),

		JWTSecret:                os.Getenv("JWT_SECRET"),
		AccessTokenExpireMinutes: accessExpire,
		RefreshTokenExpireDays:   refreshExpire,

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		LoginRateLimit: loginRateLimit,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
