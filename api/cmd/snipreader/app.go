package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/radhikaramasamy/snipreader/api/internal/answer"
	answergemini "github.com/radhikaramasamy/snipreader/api/internal/answer/gemini"
	answeropenai "github.com/radhikaramasamy/snipreader/api/internal/answer/openai"
	"github.com/radhikaramasamy/snipreader/api/internal/config"
	"github.com/radhikaramasamy/snipreader/api/internal/extract"
	"github.com/radhikaramasamy/snipreader/api/internal/ocr"
	"github.com/radhikaramasamy/snipreader/api/internal/ocr/gemini"
	"github.com/radhikaramasamy/snipreader/api/internal/ocr/yandex"
	"github.com/radhikaramasamy/snipreader/api/internal/pipeline"
	"github.com/radhikaramasamy/snipreader/api/internal/prompt"
	"github.com/radhikaramasamy/snipreader/api/internal/store"
)

// app: всё, что собирается из конфига для serve/bot/extract.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	svc    *pipeline.Service
	db     *sql.DB
	repo   *store.SetRepo
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := newLogger(level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newApp(ctx context.Context, withStore bool) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	prompts, err := prompt.Load(cfg.PromptFile)
	if err != nil {
		return nil, err
	}
	policy, err := extract.ParsePolicy(cfg.ElementPolicy)
	if err != nil {
		return nil, err
	}

	vision := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, prompts.Vision)
	vision.Temperature = cfg.GeminiTemperature
	vision.MaxTokens = cfg.GeminiMaxTokens
	vision.Logger = logger

	svc := &pipeline.Service{
		Vision:     vision,
		OCROptions: ocr.Options{Model: "page"},
		Answerer:   newAnswerer(cfg, prompts, logger),
		Structured: extract.NewStructured(policy, logger),
		Heuristic:  extract.NewHeuristic(logger),
		Logger:     logger,
	}
	if cfg.YCOAuthToken != "" && cfg.YCFolderID != "" {
		svc.OCR = yandex.New(cfg.YCOAuthToken, cfg.YCFolderID)
	} else {
		logger.Warn("ocr path disabled: YC_OAUTH_TOKEN/YC_FOLDER_ID are empty")
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn("structured path disabled: GEMINI_API_KEY is empty")
	}

	a := &app{cfg: cfg, logger: logger, svc: svc}
	if withStore {
		if err := a.openStore(ctx); err != nil {
			return nil, err
		}
		svc.Repo = a.repo
	}
	return a, nil
}

func newAnswerer(cfg *config.Config, prompts prompt.Set, logger *slog.Logger) answer.Answerer {
	switch strings.ToLower(cfg.AnswerProvider) {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			break
		}
		c := answergemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
		c.Temperature = float32(cfg.GeminiTemperature)
		c.MaxTokens = int32(cfg.GeminiMaxTokens)
		return answer.NewModel(c, prompts, logger)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			break
		}
		c := answeropenai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		return answer.NewModel(c, prompts, logger)
	case "none", "":
		return nil
	}
	logger.Warn("answering disabled", "provider", cfg.AnswerProvider)
	return nil
}

func (a *app) openStore(ctx context.Context) error {
	dsn := a.dsn()
	db, err := store.Open(ctx, a.cfg.DBDriver, dsn)
	if err != nil {
		return err
	}
	a.logger.Info("db connected", "driver", a.cfg.DBDriver, "dsn", store.SafeDSNSummary(dsn))
	if err := store.Migrate(ctx, db); err != nil {
		db.Close()
		return err
	}
	a.db = db
	a.repo = store.NewSetRepo(db, a.cfg.DBDriver)
	return nil
}

func (a *app) dsn() string {
	if a.cfg.DBDriver == store.DriverSQLite {
		if a.cfg.DatabaseURL != "" {
			return a.cfg.DatabaseURL
		}
		return "snipreader.db"
	}
	return store.ResolveDSN(a.cfg.DatabaseURL, a.cfg.PostgresUser, a.cfg.PostgresPassword,
		a.cfg.PGHost, a.cfg.PGPort, a.cfg.PostgresDB)
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("db close", "err", err)
		}
	}
}

func (a *app) addr() string {
	return fmt.Sprintf("0.0.0.0:%s", a.cfg.Port)
}
