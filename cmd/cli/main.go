package main

import (
	"context"
	"log"
	"os"

	"github.com/rayyanshah04/flexpay/internal/client/cli"
	"github.com/rayyanshah04/flexpay/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	rt, err := cli.Setup(ctx, cfg, os.Stdin, os.Stdout)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer rt.Close()

	rt.Run(ctx)

}
