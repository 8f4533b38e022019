package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	// Local runs keep SERVER_PORT and REDIS_* in a .env file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("cannot load .env %v", err)
	}
	pflag.Parse()

	server, err := Setup()
	if err != nil {
		log.Fatalf("main start failed %v", err)
		return
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		server.Shutdown()
	}()

	server.Run()
}
