package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"aitutor-server/internal/ai"
	"aitutor-server/internal/config"
	"aitutor-server/internal/extract"
	"aitutor-server/internal/model"
	mysqlClient "aitutor-server/internal/platform/mysql"
	rabbitmqClient "aitutor-server/internal/platform/rabbitmq"
	redisClient "aitutor-server/internal/platform/redis"
	"aitutor-server/internal/repository"
	"aitutor-server/internal/worker"
)

type App struct {
	Config        *config.Config
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	MessageWorker *worker.MessagePersistWorker
	Extractor     *extract.Pipeline
	LLMClient     *ai.OpenAICompatibleClient

	ocr *extract.TesseractRecognizer

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Session{}, &model.Message{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	messageRepo := repository.NewMessageRepository(mysqlDB)
	messageWorker := worker.NewMessagePersistWorker(mqConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue)
	if err := messageWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start message worker failed: %w", err)
	}

	ocr := extract.NewTesseractRecognizer(cfg.Extract.OCRLanguage)
	extractor := extract.NewPipeline(
		extract.LedongthucReader{},
		extract.NewFitzRasterizer(float64(cfg.Extract.RasterDPI)),
		ocr,
		extract.DocconvConverter{},
		slog.New(slog.NewTextHandler(os.Stderr, nil)),
	)

	return &App{
		Config:        cfg,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		MessageWorker: messageWorker,
		Extractor:     extractor,
		LLMClient:     ai.NewOpenAICompatibleClient(),
		ocr:           ocr,
		StartedAt:     time.Now(),
	}, nil
}

// DefaultLLM is the completion config used when a request carries no override.
func (a *App) DefaultLLM() ai.ChatConfig {
	return ai.ChatConfig{
		BaseURL: a.Config.LLM.BaseURL,
		APIKey:  a.Config.LLM.APIKey,
		Model:   a.Config.LLM.Model,
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.ocr != nil {
		if err := a.ocr.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
