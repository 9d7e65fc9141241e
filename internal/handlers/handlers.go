package handlers

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/riftstats/props-api/internal/logic"
	"github.com/riftstats/props-api/internal/models"
	"github.com/riftstats/props-api/internal/store"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// OutcomeQueue defines the interface for the outcome worker pool
type OutcomeQueue interface {
	Enqueue(outcome *models.PropOutcome) bool
	QueueDepth() int
}

type Config struct {
	OutcomePool OutcomeQueue
	Postgres    *pgxpool.Pool
	ClickHouse  driver.Conn
	Redis       *redis.Client
	Cache       *store.ResultCache
	Logger      *zap.Logger
	// Services
	Prediction logic.PredictionService
}

type Handler struct {
	pool       OutcomeQueue
	pg         *pgxpool.Pool
	ch         driver.Conn
	redis      *redis.Client
	cache      *store.ResultCache
	logger     *zap.SugaredLogger
	validator  *validator.Validate
	prediction logic.PredictionService
}

func New(cfg Config) *Handler {
	return &Handler{
		pool:       cfg.OutcomePool,
		pg:         cfg.Postgres,
		ch:         cfg.ClickHouse,
		redis:      cfg.Redis,
		cache:      cfg.Cache,
		logger:     cfg.Logger.Sugar(),
		validator:  validator.New(),
		prediction: cfg.Prediction,
	}
}
