package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	webproxy "github.com/thoresonjd/web-proxy"
	"github.com/thoresonjd/web-proxy/cache"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	portMin = 10000
	portMax = 65535
)

var (
	// CLI flags
	configFilenameFlag string
	listenFlag         string
	providerFlag       string
	cacheDirFlag       string
	dbFilenameFlag     string
	clearFlag          bool
	originTimeoutFlag  time.Duration
	clientTimeoutFlag  time.Duration
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&listenFlag, "listen", "", "Address to bind, without the port (default localhost)")
	flag.StringVar(&providerFlag, "provider", "", "Cache provider to use: disk, sqlite or memory (default disk)")
	flag.StringVar(&cacheDirFlag, "dir", "", "Cache directory for the disk provider (default cache)")
	flag.StringVar(&dbFilenameFlag, "db", "", "Cache DB file name for the sqlite provider (use 'memory' for in-memory db)")
	flag.BoolVar(&clearFlag, "clear", false, "Clear the cache at startup")
	flag.DurationVar(&originTimeoutFlag, "origin-timeout", 0, "Origin dial/read timeout (default 30s)")
	flag.DurationVar(&clientTimeoutFlag, "client-timeout", 0, "Client read/write timeout (default 10s)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "USAGE: %s [flags] PORT\n", os.Args[0])
	fmt.Fprintf(out, "PORT must be a valid, unreserved port between %d and %d\n", portMin, portMax)
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

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

	// the one positional argument is the port to listen on
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	port, err := strconv.Atoi(flag.Arg(0))
	if err != nil || port < portMin || port > portMax {
		flag.Usage()
		os.Exit(2)
	}

	// defaults, overridden by the config file, overridden by flags
	settings := Config{
		Listen: "localhost",
		Cache: ConfigCache{
			Provider: "disk",
			Dir:      "cache",
			DB:       "cache.db",
		},
	}
	if configFilenameFlag != "" {
		if err := getConfig(configFilenameFlag, &settings); err != nil {
			log.Fatal().Err(err).Msg("Cannot read config file")
		}
	}
	if listenFlag != "" {
		settings.Listen = listenFlag
	}
	if providerFlag != "" {
		settings.Cache.Provider = providerFlag
	}
	if cacheDirFlag != "" {
		settings.Cache.Dir = cacheDirFlag
	}
	if dbFilenameFlag != "" {
		settings.Cache.DB = dbFilenameFlag
	}
	if clearFlag {
		settings.Cache.Clear = true
	}
	originTimeout := time.Duration(settings.OriginTimeout) * time.Second
	if originTimeoutFlag != 0 {
		originTimeout = originTimeoutFlag
	}
	clientTimeout := time.Duration(settings.ClientTimeout) * time.Second
	if clientTimeoutFlag != 0 {
		clientTimeout = clientTimeoutFlag
	}

	// use configured provider
	var provider cache.CacheProvider
	switch settings.Cache.Provider {
	case "disk":
		disk, err := cache.NewDiskCache(settings.Cache.Dir)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot open disk cache")
		}
		provider = disk
	case "sqlite":
		sqlite, err := cache.NewSQLiteCache(settings.Cache.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot open sqlite cache")
		}
		provider = sqlite
	case "memory":
		provider = cache.NewMemCache()
	default:
		log.Fatal().Msgf("Unsupported cache provider: %s", settings.Cache.Provider)
	}

	if settings.Cache.Clear {
		if err := provider.Clear(); err != nil {
			log.Fatal().Err(err).Msg("Cannot clear cache")
		}
		log.Info().Msg("Cache cleared")
	}

	proxy := webproxy.New(webproxy.Config{
		Cache:         provider,
		Logger:        &log.Logger,
		OriginTimeout: originTimeout,
		ClientTimeout: clientTimeout,
	})

	addr := net.JoinHostPort(settings.Listen, strconv.Itoa(port))
	log.Info().Msgf("Proxying port %d with cache provider '%s'", port, settings.Cache.Provider)
	if err := proxy.ListenAndServe(addr); err != nil {
		log.Fatal().Err(err).Msg("Proxy failed")
	}
}
