package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/tokenauth/internal/client/cli"
	"github.com/dmitrijs2005/tokenauth/internal/client/config"
	"github.com/dmitrijs2005/tokenauth/internal/flagx"
	"github.com/dmitrijs2005/tokenauth/internal/logging"
)

// flags that take a value; everything else on the command line is the
// command to run
var valueFlags = []string{"-a", "-s", "-t", "-l", "-c", "-config"}

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(os.Stderr, cfg.LogLevel)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	os.Exit(app.Run(ctx, flagx.Positional(os.Args[1:], valueFlags)))

}
