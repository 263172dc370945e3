package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alvarorichard/hianime/internal/tracking"
	"github.com/alvarorichard/hianime/internal/util"
	"github.com/alvarorichard/hianime/internal/version"
	"github.com/alvarorichard/hianime/pkg/hianime"
)

func main() {
	startAll := time.Now()

	// Define all flags in one place
	versionFlag := flag.Bool("version", false, "show version information")
	debugFlag := flag.Bool("debug", false, "enable debug mode")
	helpFlag := flag.Bool("help", false, "show help message")
	altHelpFlag := flag.Bool("h", false, "show help message")
	configFlag := flag.String("config", "", "path to a config.yaml file")
	pageFlag := flag.Int("page", 1, "result page for search and genre listings")

	flag.Usage = util.ShowBeautifulHelp
	flag.Parse()

	if *versionFlag {
		version.ShowVersion()
		return
	}

	if *helpFlag || *altHelpFlag {
		util.ShowBeautifulHelp()
		return
	}

	cfg, err := hianime.LoadConfig(*configFlag)
	if err != nil {
		log.Fatalln(util.ErrorHandler(err))
	}

	// Debug must be set before the logger picks its level
	util.SetDebugMode(*debugFlag || cfg.Logging.Debug)
	util.InitLogger()
	util.Debug("Configuration loaded", "baseURL", cfg.Site.BaseURL, "dataDir", cfg.Storage.DataDir)

	tracking.HandleTrackingNotice()

	client, err := hianime.Open(cfg)
	if err != nil {
		log.Fatalln(util.ErrorHandler(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := newApp(client, os.Stdout, *pageFlag)
	cmd, args := util.CommandArgs(flag.CommandLine)
	runErr := a.run(ctx, cmd, args)

	stop()
	if err := client.Close(); err != nil {
		util.Warn("Failed to close local storage", "error", err)
	}

	util.Debugf("[PERF] %s finished in %v", cmd, time.Since(startAll))

	if runErr != nil {
		fmt.Fprintln(os.Stderr, util.ErrorHandler(runErr))
		os.Exit(1)
	}
}
