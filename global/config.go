package global

import (
	"context"
	"os"
	"strconv"
	"time"

	"PulseChat/logger"
	mgoSrv "PulseChat/service/mgo"
	"PulseChat/service/storage"
	redis "PulseChat/service/storage/redis"
	ids "PulseChat/tools/ids"
)

type AppConfig struct {
	Port   int
	NodeID int64

	MongoURI      string
	MongoDatabase string
	MongoUser     string
	MongoPassword string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	SessionTTL time.Duration

	UploadDir  string
	UploadBase string

	ClientOrigin string
}

var Global = loadConfig()

func loadConfig() AppConfig {
	return AppConfig{
		Port:   envInt("PORT", 8080),
		NodeID: int64(envInt("NODE_ID", 1)),

		MongoURI:      envStr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: envStr("MONGO_DATABASE", "pulsechat"),
		MongoUser:     envStr("MONGO_USER", ""),
		MongoPassword: envStr("MONGO_PASSWORD", ""),

		RedisAddr:     envStr("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		JWTSecret:  envStr("JWT_SECRET", "dev-only-secret-change-me"),
		SessionTTL: envDur("SESSION_TTL", 2*time.Hour),

		UploadDir:  envStr("UPLOAD_DIR", "uploads"),
		UploadBase: envStr("UPLOAD_BASE_URL", "/uploads"),

		ClientOrigin: envStr("CLIENT_ORIGIN", "http://localhost:5173"),
	}
}

func GetJwtSecret() []byte { return []byte(Global.JWTSecret) }

func ConfigAll(ctx context.Context) error {
	ConfigIds()
	if err := ConfigRedis(); err != nil {
		return err
	}
	ConfigMgo(ctx)
	return nil
}

func ConfigIds() {
	ids.SetNodeID(Global.NodeID)
}

// ConfigRedis fails hard: without the session store every authenticated
// request would panic, so a boot with Redis down must not serve traffic.
func ConfigRedis() error {
	err := redis.InitRedis(redis.Config{
		Addr:     Global.RedisAddr,
		Password: Global.RedisPassword,
		DB:       Global.RedisDB,
	})
	if err != nil {
		logger.Errorf("[config] redis init failed: %v", err)
		return err
	}
	storage.InitSessions(storage.SessionConfig{TTL: Global.SessionTTL})
	return nil
}

func ConfigMgo(ctx context.Context) {
	cfg := &mgoSrv.Config{
		Uri:         Global.MongoURI,
		Database:    Global.MongoDatabase,
		Username:    Global.MongoUser,
		Password:    Global.MongoPassword,
		MaxPoolSize: 20,
	}
	mgoSrv.StartAsync(ctx, cfg)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
