package cli

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
	"github.com/ahmethakanbesel/fx-etl/internal/config"
	"github.com/ahmethakanbesel/fx-etl/internal/fetcher"
	"github.com/ahmethakanbesel/fx-etl/internal/fetcher/apilayer"
	"github.com/ahmethakanbesel/fx-etl/internal/fetcher/exchangeratehost"
	"github.com/ahmethakanbesel/fx-etl/internal/logging"
	"github.com/ahmethakanbesel/fx-etl/internal/platform/sqlite"
)

// options holds the global flags. Empty values defer to the environment.
type options struct {
	envFile  string
	dbPath   string
	logPath  string
	base     string
	provider string
}

// app is the per-command wiring: configuration, logger and database.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sqlite.DB
	closers []io.Closer
}

func (o *options) load() (config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return cfg, err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.logPath != "" {
		cfg.LogPath = o.logPath
	}
	if o.base != "" {
		cfg.BaseCurrency = strings.ToUpper(o.base)
	}
	if o.provider != "" {
		cfg.Provider = o.provider
	}
	return cfg, nil
}

// newApp loads configuration and sets up logging. With toFile set the
// logger appends to the configured log file, otherwise it writes to stderr.
func newApp(o *options, toFile bool) (*app, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	if toFile {
		logger, closer, err := logging.Open(cfg.LogPath, cfg.LogLevel, cfg.LogStderr)
		if err != nil {
			return nil, apperror.Wrap(apperror.Configuration, err, "open log")
		}
		a.logger = logger
		a.closers = append(a.closers, closer)
	} else {
		lvl, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, apperror.Wrap(apperror.Configuration, err, "parse LOG_LEVEL")
		}
		a.logger = logging.New(os.Stderr, lvl)
	}
	slog.SetDefault(a.logger)
	return a, nil
}

// openApp is newApp followed by openDB, for commands that only read.
func openApp(o *options) (*app, error) {
	a, err := newApp(o, false)
	if err != nil {
		return nil, err
	}
	if err := a.openDB(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openDB() error {
	db, err := sqlite.Open(a.cfg.DBPath)
	if err != nil {
		return apperror.Wrap(apperror.Storage, err, "open database "+a.cfg.DBPath)
	}
	a.db = db
	a.closers = append(a.closers, db)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}

// registry builds every provider with the configured key, timeout and
// URL override. The override only applies to the selected provider.
func (a *app) registry() *fetcher.Registry {
	client := &http.Client{Timeout: a.cfg.HTTPTimeout}

	var erhURL, alURL string
	switch a.cfg.Provider {
	case exchangeratehost.Source:
		erhURL = a.cfg.APIURL
	case apilayer.Source:
		alURL = a.cfg.APIURL
	}

	reg := fetcher.NewRegistry()
	reg.Register(exchangeratehost.New(a.cfg.APIKey,
		exchangeratehost.WithClient(client),
		exchangeratehost.WithEndpoint(erhURL),
	))
	reg.Register(apilayer.New(a.cfg.APIKey,
		apilayer.WithClient(client),
		apilayer.WithEndpoint(alURL),
	))
	return reg
}
