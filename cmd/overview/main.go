package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jgivc/harvestoverview/internal/app"
)

func main() {
	cfgFileName := flag.String("c", "config.yml", "Path to config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := app.New(*cfgFileName)
	app.Start()

	c := make(chan os.Signal, 1)
	defer close(c)
	done := make(chan struct{})

	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		defer close(done)

		for sig := range c {
			switch sig {
			case syscall.SIGHUP:
				go app.Cycle(ctx)
			case syscall.SIGUSR1:
				go app.Save()
			case syscall.SIGUSR2:
				go app.Check()
			case syscall.SIGTERM, syscall.SIGINT:
				fmt.Println("Received termination signal. Shutting down...")

				return
			}
		}
	}()

	<-done
	signal.Stop(c)
	cancel()
	app.Stop()
	fmt.Println("done")
}
