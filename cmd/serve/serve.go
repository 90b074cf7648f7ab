// Package serve runs the queue web server in the foreground. The
// installed Windows service runs this same command.
package serve

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/config"
	"github.com/jdsquared/thequeue/pkg/epicor"
	"github.com/jdsquared/thequeue/pkg/erpdb"
	"github.com/jdsquared/thequeue/pkg/logger"
	"github.com/jdsquared/thequeue/pkg/preflight"
	"github.com/jdsquared/thequeue/pkg/queue_cli"
	"github.com/jdsquared/thequeue/pkg/queue_io"
	"github.com/jdsquared/thequeue/pkg/webapp"
	"github.com/jdsquared/thequeue/pkg/workcell"
)

var (
	debugMode     bool
	skipPreflight bool
)

// ServeCmd starts the HTTP server.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the queue web server",
	Long: `Serve the work cell queue pages and JSON API. Debug mode raises the
log level and reloads page templates from disk on every request.`,
	RunE: queue_cli.Wrap(func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		log := otelzap.Ctx(rc.Ctx)

		settings, err := config.Load()
		if err != nil {
			return err
		}

		if debugMode || settings.Server.Debug {
			debugMode = true
			logger.EnableDebug()
			log.Info("Debug mode enabled")
		}

		if !skipPreflight {
			if _, err := preflight.RunChecks(rc.Ctx, preflight.ServerChecks(settings)); err != nil {
				return err
			}
		}

		registry, err := workcell.Load(settings.Paths.WorkcellsFile)
		if err != nil {
			return err
		}
		if err := registry.Watch(rc.Ctx); err != nil {
			log.Warn("Workcell definitions will not auto-reload", zap.Error(err))
		}

		store, err := erpdb.New(settings.Database.DSN)
		if err != nil {
			return err
		}
		defer store.Close()

		laborClient := epicor.New(epicor.Config{
			BaseURL:     settings.Epicor.BaseURL,
			APIKey:      settings.Epicor.APIKey,
			Username:    settings.Epicor.Username,
			Password:    settings.Epicor.Password,
			InsecureTLS: settings.Epicor.InsecureTLS,
		})

		server, err := webapp.New(webapp.Options{
			Addr:        settings.Server.Address(),
			Debug:       debugMode,
			TemplateDir: filepath.Join(settings.Paths.AppRoot, "templates"),
		}, store, laborClient, registry)
		if err != nil {
			return err
		}

		signals := queue_cli.NewSignalHandler(rc.Ctx)
		signals.RegisterCleanup(func() error {
			return server.Shutdown(rc.Ctx)
		})

		log.Info("The Queue is up",
			zap.String("addr", settings.Server.Address()),
			zap.Int("workcells", registry.Count()),
			zap.Bool("debug", debugMode))

		serveErr := make(chan error, 1)
		go func() {
			serveErr <- server.Start(signals.Context())
		}()

		select {
		case err := <-serveErr:
			signals.Stop()
			<-signals.Done()
			return err
		case <-signals.Done():
			return nil
		}
	}),
}

func init() {
	ServeCmd.Flags().BoolVar(&debugMode, "debug", false,
		"verbose logging and template reload on every request")
	ServeCmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false,
		"start without running environment checks")
}
