/*
simplegfx renders the models listed in config.toml, each spinning in place
with its own texture.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/simplegfx/engine"
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/testbed"
)

func main() {
	if err := run(); err != nil {
		core.LogError("%s", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.toml (default: ./config.toml, then ~/.simplegfx/config.toml)")
	flag.Parse()

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	tb, err := testbed.NewTestGame(cfg)
	if err != nil {
		return err
	}

	e, err := engine.New(tb.Game)
	if err != nil {
		return err
	}

	if err := e.Initialize(); err != nil {
		if serr := e.Shutdown(); serr != nil {
			core.LogError("%s", serr)
		}
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// the render loop owns the window thread, so a signal only asks it to stop
	go func() {
		<-sigCh
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
