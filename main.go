/*
Opens a window and presents a triangle until the window is closed, ESC is
pressed or the process is interrupted.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vkplayground/engine"
	"github.com/spaghettifunk/vkplayground/engine/core"
)

const configEnv = "VKPLAYGROUND_CONFIG"

func main() {
	os.Exit(run())
}

func run() int {
	defaultConfig := "config.toml"
	if p, ok := os.LookupEnv(configEnv); ok {
		defaultConfig = p
	}
	configPath := flag.String("config", defaultConfig, "path to the TOML configuration (env "+configEnv+")")
	flag.Parse()

	cfg, err := engine.LoadApplicationConfig(*configPath)
	if err != nil {
		core.LogError("failed to load configuration: %s", err)
		return 2
	}

	e, err := engine.New(cfg)
	if err != nil {
		core.LogError(err.Error())
		return 1
	}
	defer func() {
		if err := e.Shutdown(); err != nil {
			core.LogError(err.Error())
		}
	}()

	if err := e.Initialize(); err != nil {
		core.LogError("failed to initialize: %s", err)
		return 1
	}

	// capture sigterm and other system calls; checked between frames
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	// run engine
	if err := e.Run(ctx); err != nil {
		return 1
	}
	return 0
}
