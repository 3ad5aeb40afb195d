package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/cropauth/internal/client/cli"
	"github.com/dmitrijs2005/cropauth/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app := cli.NewApp(cfg, os.Stdin, os.Stdout)

	os.Exit(app.Run(ctx, os.Args[1:]))

}
