package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"surveyrag/app/api"
	"surveyrag/config"
	"surveyrag/model"
	"surveyrag/store"

	"github.com/gofiber/fiber/v2"
)

var fiberConfig = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	cfg        *config.AppConfig
	logger     *slog.Logger
}

func NewServer(addr string, cfg *config.AppConfig) *Server {
	return &Server{
		listenAddr: addr,
		cfg:        cfg,
		logger:     slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()
	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
	pool, err := store.NewPostgresStore(ctx, connStr)
	if err != nil {
		log.Fatal("error connecting to Postgres database: ", err)
		return
	}

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error creating tables: ", err)
		return
	}

	var (
		embedder = model.NewOpenAIEmbedder(s.cfg.Embedding)
		chat     = model.NewOpenAIChat(s.cfg.Vision)

		app           = fiber.New(fiberConfig)
		checkHandler  = api.NewCheckHandler()
		surveyHandler = api.NewSurveyHandler(pool, embedder, chat, s.cfg.Query)
		uploadHandler = api.NewUploadHandler(s.cfg.Ingest.SourceDir)

		check = app.Group("/check")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	app.Post("/survey", surveyHandler.HandleSurvey)
	app.Post("/upload", uploadHandler.HandlePDF)

	if err := app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error starting server", "error", err.Error())
		return
	}
}
