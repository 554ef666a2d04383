package main

import (
	"context"
	"log"

	"github.com/rayyanshah04/flexpay/internal/devbackend"
	"github.com/rayyanshah04/flexpay/internal/devbackend/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := devbackend.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
