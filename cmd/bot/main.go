package main

import (
	"context"
	"log"

	"github.com/mpetrov/cardkeeper/internal/bot"
	"github.com/mpetrov/cardkeeper/internal/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := bot.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
