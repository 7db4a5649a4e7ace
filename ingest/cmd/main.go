package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"surveyrag/config"
	"surveyrag/ingest/service"
	"surveyrag/model"
	"surveyrag/store"

	"github.com/joho/godotenv"
)

func init() {
	mustLoadEnvVariables()
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal("error loading config: ", err)
	}

	ctx := context.Background()
	pool, err := store.NewPostgresStore(ctx, postgresConnStr())
	if err != nil {
		log.Fatal("error connecting to Postgres database: ", err)
	}
	defer pool.Close()

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error creating tables: ", err)
	}

	embedder := model.NewOpenAIEmbedder(cfg.Embedding)

	s := service.New(pool, embedder, *cfg)
	s.Run()
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}

func postgresConnStr() string {
	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
}

func mustLoadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment as is")
	}
}
