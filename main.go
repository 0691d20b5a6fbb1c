/*
shadowproxy combines the static and skinned meshes under a scene object into
a single mesh with one submesh per material, to be used as a shadow caster.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/shadowproxy/engine"
	"github.com/spaghettifunk/shadowproxy/engine/core"
)

func main() {
	configPath := flag.String("config", "", "optional TOML config file")
	scenePath := flag.String("scene", "", "scene description to generate the proxy from")
	root := flag.String("root", engine.DefaultRootName, "name of the object whose subtree is combined")
	output := flag.String("output", engine.DefaultOutputPath, "mesh asset to write")
	previewPath := flag.String("preview", "", "optional silhouette image (.webp or .png)")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	watch := flag.Bool("watch", false, "regenerate whenever the scene changes")
	flag.Parse()

	config := &engine.ApplicationConfig{}
	if *configPath != "" {
		c, err := engine.LoadApplicationConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		config = c
	}

	// Only flags given explicitly override the config file.
	overrides := engine.Overrides{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scene":
			overrides.Scene = scenePath
		case "root":
			overrides.Root = root
		case "output":
			overrides.Output = output
		case "preview":
			overrides.Preview = previewPath
		case "log-level":
			overrides.LogLevel = logLevel
		case "watch":
			overrides.Watch = watch
		}
	})
	if err := config.Resolve(overrides); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	e, err := engine.New(config)
	if err != nil {
		core.LogFatal("%s", err)
	}
	if err := e.Initialize(); err != nil {
		core.LogFatal("%s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		<-sigCh
		core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
	}()

	runErr := e.Run(context.Background())
	if err := e.Shutdown(); err != nil {
		core.LogError("%s", err)
	}
	if err := core.EventShutdown(); err != nil {
		core.LogError("%s", err)
	}
	if runErr != nil {
		core.LogFatal("%s", runErr)
	}
}
