// Package servercli is the command line of the standalone fakedis server
package servercli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fakedis/fakedis/config"
	"github.com/fakedis/fakedis/database"
	"github.com/fakedis/fakedis/lib/logger"
	"github.com/fakedis/fakedis/lib/metrics"
	"github.com/fakedis/fakedis/redis/server"
)

var banner = `
    ____      __            ___
   / __/___ _/ /_____  ____/ (_)____
  / /_/ __ '/ //_/ _ \/ __  / / ___/
 / __/ /_/ / ,< /  __/ /_/ / (__  )
/_/  \__,_/_/|_|\___/\__,_/_/____/
`

var flags = struct {
	config      string
	bind        string
	port        int
	databases   int
	requirePass string
	version     string
	metricsAddr string
	logLevel    string
}{}

var rootCmd = &cobra.Command{
	Use:           "fakedis",
	Short:         "fakedis is an in-memory redis emulation for tests, served over the redis protocol",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		props, err := loadProperties(cmd, flags.config)
		if err != nil {
			return err
		}
		return StartServer(cmd.Context(), props)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", os.Getenv("CONFIG"), "redis.conf style config file")
	pf.StringVar(&flags.bind, "bind", "", "listen address")
	pf.IntVarP(&flags.port, "port", "p", 0, "listen port")
	pf.IntVar(&flags.databases, "databases", 0, "number of databases")
	pf.StringVar(&flags.requirePass, "requirepass", "", "password required by AUTH")
	pf.StringVar(&flags.version, "redis-version", "", "emulated server version, such as 6.2.0")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve prometheus metrics at this address")
	pf.StringVar(&flags.logLevel, "loglevel", "", "debug, info, warn or error")
}

// AddCommand add command into Cli
func AddCommand(cmdline *cobra.Command) {
	rootCmd.AddCommand(cmdline)
}

// loadProperties reads the config file, then applies the flags given on the command line
func loadProperties(cmd *cobra.Command, filename string) (*config.ServerProperties, error) {
	if err := config.Setup(filename); err != nil {
		return nil, err
	}
	props := config.Properties
	changed := cmd.Flags().Changed
	if changed("bind") {
		props.Bind = flags.bind
	}
	if changed("port") {
		if err := validPort(flags.port); err != nil {
			return nil, err
		}
		props.Port = flags.port
	}
	if changed("databases") {
		props.Databases = flags.databases
	}
	if changed("requirepass") {
		props.RequirePass = flags.requirePass
	}
	if changed("redis-version") {
		if _, err := config.ParseVersion(flags.version); err != nil {
			return nil, err
		}
		props.Version = flags.version
	}
	if changed("metrics-addr") {
		props.MetricsAddr = flags.metricsAddr
	}
	if changed("loglevel") {
		props.LogLevel = flags.logLevel
	}
	return props, nil
}

func setupLogger(props *config.ServerProperties) {
	if props.LogDir == "" {
		logger.SetLevel(props.LogLevel)
		return
	}
	logger.Setup(&logger.Settings{
		Path:       props.LogDir,
		Name:       "fakedis",
		Ext:        "log",
		TimeFormat: "2006-01-02",
		Level:      props.LogLevel,
	})
}

// StartServer serves props until ctx is done or a stop signal arrives
func StartServer(ctx context.Context, props *config.ServerProperties) error {
	print(banner)
	setupLogger(props)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	m := metrics.New()
	db := database.NewServer(database.WithProperties(props), database.WithMetrics(m))
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.New(db, props).ListenAndServe(ctx)
	})
	if props.MetricsAddr != "" {
		httpServer := &http.Server{Addr: props.MetricsAddr, Handler: m.Handler()}
		g.Go(func() error {
			logger.Infof("metrics are served at %s", props.MetricsAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return httpServer.Shutdown(context.Background())
		})
	}
	err := g.Wait()
	logger.Info("fakedis stopped")
	return err
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
