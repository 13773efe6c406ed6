package main

import (
	"context"
	"fmt"
	"github.com/lefinal/memorama/app"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	config, err := app.LoadConfig()
	if err != nil {
		log.Fatal(fmt.Sprintf("load config: %s", err.Error()))
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err = app.NewApp(config).Boot(ctx)
	cancel()
	if err != nil {
		log.Fatal(err.Error())
	}
}
