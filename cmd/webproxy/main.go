package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/webcache/webproxy"
	"github.com/webcache/webproxy/cache"
)

var (
	// CLI flags
	configFilenameFlag string
	providerFlag       string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&providerFlag, "provider", "memory", "Cache provider to use (memory or sqlite)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <port>\n", os.Args[0])
		flag.PrintDefaults()
	}

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	port, err := strconv.Atoi(flag.Arg(0))
	if err != nil || port < 1 || port > 65535 {
		fmt.Fprintf(os.Stderr, "Invalid port %q\n", flag.Arg(0))
		os.Exit(1)
	}

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	serverConfig := webproxy.Config{
		Port:   port,
		Logger: &log.Logger,
	}

	provider := providerFlag
	if configFilenameFlag != "" {
		fileConfig, err := webproxy.GetConfig(configFilenameFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot read config file")
		}
		fileConfig.Apply(&serverConfig)
		if fileConfig.Provider != "" {
			provider = fileConfig.Provider
		}
	}

	switch provider {
	case "memory":
		serverConfig.Cache = cache.NewMemCache()
	case "sqlite":
		serverConfig.Cache = cache.NewSQLiteCache("")
	default:
		log.Fatal().Msgf("Unsupported cache provider: %s", provider)
	}

	server := webproxy.NewServer(serverConfig)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signals
		log.Info().Msgf("Received %s, shutting down", sig)
		server.Shutdown()
	}()

	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Cannot start proxy")
	}
}
