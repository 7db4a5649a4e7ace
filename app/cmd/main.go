package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"surveyrag/app/server"
	"surveyrag/config"

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

	s := server.NewServer(os.Getenv("SERVER_ADDR"), cfg)

	go s.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("Received shutdown signal, shutting down server...")
	s.Stop()
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}

func mustLoadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment as is")
	}
}
