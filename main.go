/*
Headless demo of the texture pipeline: every texture named on the command
line is loaded in each loading mode and its final state is reported.

	skytex [flags] stars/sun.png https://example.com/moon.png
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spaghettifunk/skytex/engine"
	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer/headless"
	"github.com/spaghettifunk/skytex/testbed"
)

func init() {
	// The graphics context belongs to the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "path to a TOML configuration file")
	envPath := flag.String("env", ".env", "dotenv file with SKYTEX_* overrides")
	maxSize := flag.Int("max-texture-size", 4096, "maximum texture edge reported by the headless context")
	npot := flag.Bool("npot", true, "allow non-power-of-two colour textures")
	npotLuminance := flag.Bool("npot-luminance", true, "allow non-power-of-two luminance textures")
	floatTextures := flag.Bool("float", true, "allow floating point textures")
	timeout := flag.Float64("timeout", 30, "seconds to wait for all textures to settle")
	fps := flag.Float64("fps", 60, "frame rate of the engine loop")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] texture...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := engine.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = engine.LoadConfig(*configPath); err != nil {
			core.LogFatal(err.Error())
		}
	}
	if err := cfg.ApplyEnv(*envPath); err != nil {
		core.LogFatal(err.Error())
	}

	caps := headless.DefaultCapabilities()
	caps.MaxTextureSize = *maxSize
	caps.NPOT = *npot
	caps.NPOTLuminance = *npotLuminance
	caps.FloatTextures = *floatTextures

	tb, err := testbed.NewTestGame(&engine.ApplicationConfig{
		Name:         "Skytex",
		Config:       cfg,
		Capabilities: caps,
		TargetFPS:    *fps,
	}, flag.Args(), *timeout)
	if err != nil {
		core.LogFatal(err.Error())
	}

	e, err := engine.New(tb.Game, nil)
	if err != nil {
		core.LogFatal(err.Error())
	}
	if err := e.Initialize(); err != nil {
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		e.Stop()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if runErr != nil {
		core.LogFatal(runErr.Error())
	}

	loaded, failed := tb.Counts()
	if failed > 0 || loaded == 0 {
		os.Exit(1)
	}
}
