package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/jobwatch/internal/config"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/printer"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug         bool
	NoLog         bool
	NoColor       bool
	LoggerType    string
	ConfigPath    string
	Provider      string
	DBPath        string
	ProviderURL   string
	ProviderToken string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger

	defaultConfigPath string
	defaultDBPath     string
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{
		defaultConfigPath: filepath.Join(homedir.HomeDir(), ".jobwatch", "config.yaml"),
		defaultDBPath:     filepath.Join(homedir.HomeDir(), ".jobwatch", "jobs.db"),
	}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("config", "Path to the configuration file (default: ~/.jobwatch/config.yaml).").StringVar(&c.ConfigPath)
	app.Flag("provider", "Job provider type, overrides the configuration file.").EnumVar(&c.Provider,
		string(config.ProviderTypeHTTP), string(config.ProviderTypeSQLite), string(config.ProviderTypeFake))
	app.Flag("db-path", "Path to the SQLite provider database file, overrides the configuration file.").StringVar(&c.DBPath)
	app.Flag("provider-url", "HTTP provider API URL, overrides the configuration file.").StringVar(&c.ProviderURL)
	app.Flag("provider-token", "HTTP provider API bearer token, overrides the configuration file.").StringVar(&c.ProviderToken)

	return c
}

// LoadConfig loads the configuration file and applies the global flag overrides on top.
//
// A missing file at the default location is not an error, the defaults are used instead.
func (c *RootCommand) LoadConfig(ctx context.Context) (config.Config, error) {
	base := config.Default()
	base.Provider.SQLite.DBPath = c.defaultDBPath

	configPath := c.ConfigPath
	if configPath == "" {
		configPath = c.defaultConfigPath
	}

	path, err := filepath.Abs(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid config path: %w", err)
	}

	loader := config.NewYAMLLoader(os.DirFS(filepath.Dir(path)), base)
	cfg, err := loader.Load(ctx, filepath.Base(path))
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && c.ConfigPath == "":
		c.Logger.Debugf("No configuration file at %s, using defaults", path)
		cfg = base
	default:
		return config.Config{}, fmt.Errorf("could not load config: %w", err)
	}

	if c.Provider != "" {
		cfg.Provider.Type = config.ProviderType(c.Provider)
	}
	if c.DBPath != "" {
		cfg.Provider.SQLite.DBPath = c.DBPath
	}
	if c.ProviderURL != "" {
		cfg.Provider.HTTP.URL = c.ProviderURL
	}
	if c.ProviderToken != "" {
		cfg.Provider.HTTP.Token = c.ProviderToken
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newPrinter(format string, w io.Writer) printer.Printer {
	switch format {
	case formatJSON:
		return printer.NewJSONPrinter(w)
	default:
		return printer.NewTablePrinter(w)
	}
}
