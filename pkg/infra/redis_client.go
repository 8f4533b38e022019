package infra

import (
	"context"
	"os"
	"strconv"

	"github.com/go-redis/redis/v8"
)

func ProvideRedisClient(loggerFactory *LoggerFactory) (*redis.Client, error) {
	logger := loggerFactory.Create("RedisClient").Sugar()

	redisDb := 0
	if rawDb := os.Getenv("REDIS_DB"); rawDb != "" {
		db, err := strconv.Atoi(rawDb)
		if err != nil {
			logger.Errorf("invalid redis db[%v] %v", rawDb, err)
			return nil, err
		}
		redisDb = db
	}

	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost:6379"
	}

	return redis.NewClient(&redis.Options{
		Addr: host,
		DB:   redisDb,
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			logger.Infof("redis connected to host[%v] db[%v]", host, redisDb)
			return nil
		},
	}), nil
}
