// Command unionmountd mounts the two-tier union filesystem and blocks
// until the kernel tears the mount down or a termination signal
// arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/unionmountd/unionmountd/internal/config"
	"github.com/unionmountd/unionmountd/internal/diag"
	"github.com/unionmountd/unionmountd/internal/metrics"
	"github.com/unionmountd/unionmountd/internal/mount"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "", "path to a YAML configuration file")
		mountPath   = flag.String("mount", "", "mount point (overrides config)")
		localDir    = flag.String("local", "", "local tier root (overrides config)")
		externalDir = flag.String("external", "", "external tier root (overrides config)")
		readOnly    = flag.Bool("readonly", false, "mount read-only")
		debug       = flag.Bool("debug", false, "enable verbose diagnostic logging")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		if err := cfg.LoadFromFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "unionmountd: %v\n", err)
			return 1
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "unionmountd: %v\n", err)
		return 1
	}
	if *mountPath != "" {
		cfg.Mount.MountPath = *mountPath
	}
	if *localDir != "" {
		cfg.Mount.LocalDir = *localDir
	}
	if *externalDir != "" {
		cfg.Mount.ExternalDir = *externalDir
	}
	if *readOnly {
		cfg.Mount.ReadOnly = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "unionmountd: invalid configuration: %v\n", err)
		return 1
	}

	log := diag.New()
	log.SetDebug(*debug)
	if cfg.Logging.LogFile != "" {
		if err := log.SetSinkPath(cfg.Logging.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "unionmountd: %v\n", err)
			return 1
		}
	}
	defer log.Close()

	mcfg := metrics.DefaultConfig()
	mcfg.Enabled = cfg.Logging.MetricsAddr != ""
	if mcfg.Enabled {
		mcfg.Address = cfg.Logging.MetricsAddr
	}
	mcs, err := metrics.NewCollector(mcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unionmountd: %v\n", err)
		return 1
	}
	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()
	if err := mcs.Start(metricsCtx); err != nil {
		fmt.Fprintf(os.Stderr, "unionmountd: %v\n", err)
		return 1
	}

	session := mount.NewSession(log, mcs)
	if err := session.Mount(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "unionmountd: mount failed: %v\n", err)
		return 1
	}
	log.Info("unionmountd ready at %s", cfg.Mount.MountPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	loopDone := make(chan struct{})
	go func() {
		session.WaitForLoop()
		close(loopDone)
	}()

	select {
	case sig := <-sigCh:
		log.Info("received %s, unmounting", sig)
		if err := session.Unmount(); err != nil {
			log.Error("unmount failed: %v", err)
		}
	case <-loopDone:
	}

	<-loopDone
	session.LogExitDiagnostics()
	return 0
}
