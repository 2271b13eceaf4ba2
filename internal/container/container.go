package container

import (
	"context"
	"fmt"
	"time"

	"github.com/Bjornhona/movie-explorer/internal/auth"
	"github.com/Bjornhona/movie-explorer/internal/cache"
	"github.com/Bjornhona/movie-explorer/internal/catalog"
	"github.com/Bjornhona/movie-explorer/internal/config"
	"github.com/Bjornhona/movie-explorer/internal/database"
	"github.com/Bjornhona/movie-explorer/internal/logger"
	"github.com/Bjornhona/movie-explorer/internal/wishlist"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Container struct {
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Logger   *logrus.Logger
	Catalog  *catalog.Client
	Auth     *auth.Manager
	Wishlist *wishlist.Service
	Accounts *database.AccountRepo
}

func New(ctx context.Context) (*Container, error) {
	log := logger.Get()

	db, err := database.NewPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Info("Database connection successful")

	redisClient, err := cache.New(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	log.Info("Redis connection successful")

	baseURL, accessToken, approveURL := config.CatalogConfig()

	catalogClient := catalog.NewClient(&catalog.ClientConfig{
		BaseURL:     baseURL,
		AccessToken: accessToken,
		Timeout:     30 * time.Second,
		MaxRetries:  3,
		RetryDelay:  2 * time.Second,
		Logger:      log,
		Redis:       redisClient,
	})

	accounts := database.NewAccountRepo(db, log)
	store := auth.NewRedisStore(redisClient)

	return &Container{
		DB:       db,
		Redis:    redisClient,
		Logger:   log,
		Catalog:  catalogClient,
		Auth:     auth.NewManager(catalogClient, store, accounts, approveURL, log),
		Wishlist: wishlist.NewService(catalogClient, log),
		Accounts: accounts,
	}, nil
}

func (c *Container) Close() {
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("Database connection closed")
	}
}
