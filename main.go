package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard-api/api"
	"taskboard-api/board"
	"taskboard-api/realtime"
	"taskboard-api/storage"
)

const defaultTokenTTL = 30 * 24 * time.Hour

func main() {
	logger := log.New()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		logger.SetLevel(log.DebugLevel)
	}

	mongoURL := os.Getenv("MONGO_URL")
	dbName := os.Getenv("DB_NAME")
	if mongoURL == "" || dbName == "" {
		logger.Fatal("missing storage config")
	}
	ctx := context.Background()
	store, err := storage.NewMongo(ctx, mongoURL, dbName)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer store.Close(ctx)

	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		logger.Fatal("missing SECRET_KEY")
	}
	tokenTTL := defaultTokenTTL
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			logger.Fatalf("invalid TOKEN_TTL: %v", err)
		}
		tokenTTL = d
	}
	auth := api.NewAuth([]byte(secret), tokenTTL)

	registry := realtime.NewRegistry()
	membership := board.NewMembership(store)

	var bus realtime.Bus
	var redisBus *realtime.RedisBus
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		rc := redis.NewClient(redisOpts)
		channel := os.Getenv("EVENT_BUS_CHANNEL")
		if channel == "" {
			channel = "board:events"
		}
		redisBus = realtime.NewRedisBus(rc, channel)
		bus = redisBus
		logger.Infof("event bus enabled on channel %s", channel)
	}

	broadcaster := realtime.NewBroadcaster(membership, registry, bus, logger)
	if redisBus != nil {
		go redisBus.SubscribeLoop(ctx, logger, broadcaster.Deliver)
	}

	svc := board.NewService(store, broadcaster, logger)

	e := echo.New()
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.Register(e, store, svc, auth, registry, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}
	e.Logger.Fatal(e.Start(listenAddr))
}
