// Package config loads the service configuration.
//
// Values are layered with the following priority (lowest first):
// built-in defaults, a JSON file (CONFIG env or -c flag), environment
// variables (a .env file is loaded first when present) and command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the service.
type Config struct {
	RunAddr               string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel              string        `env:"LOG_LEVEL" validate:"loglevel"`
	MongoURI              string        `env:"MONGO_URI" validate:"omitempty,startswith=mongodb"`
	DBName                string        `env:"DB_NAME" validate:"required"`
	UsersCollection       string        `env:"USERS_COLLECTION" validate:"required"`
	SubscribersCollection string        `env:"SUBSCRIBERS_COLLECTION" validate:"required"`
	DatabaseDSN           string        `env:"DATABASE_DSN"`
	DBConnectionTimeout   time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
}

// fileConfig mirrors Config in the JSON file. Durations are written as strings ("10s").
type fileConfig struct {
	RunAddr               string `json:"server_address"`
	LogLevel              string `json:"log_level"`
	MongoURI              string `json:"mongo_uri"`
	DBName                string `json:"db_name"`
	UsersCollection       string `json:"users_collection"`
	SubscribersCollection string `json:"subscribers_collection"`
	DatabaseDSN           string `json:"database_dsn"`
	DBConnectionTimeout   string `json:"db_connection_timeout"`
}

var defaultConfig = Config{
	RunAddr:               ":3000",
	LogLevel:              "info",
	MongoURI:              "",
	DBName:                "fenix",
	UsersCollection:       "users",
	SubscribersCollection: "subscribers",
	DatabaseDSN:           "",
	DBConnectionTimeout:   10 * time.Second,
}

// ErrEmptyConfigPath is returned when -c is given an empty value.
var ErrEmptyConfigPath = errors.New("the config file path is empty")

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips the command line. Tests use it to avoid the go test flags.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// commandLine is what was actually passed on the command line.
type commandLine struct {
	values     Config
	configPath string
	set        map[string]bool
}

func parseFlags(args []string) (*commandLine, error) {
	cl := &commandLine{
		values: defaultConfig,
		set:    map[string]bool{},
	}

	flagSet := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flagSet.StringVar(&cl.values.RunAddr, "a", cl.values.RunAddr, "address and port to run server")
	flagSet.StringVar(&cl.values.LogLevel, "l", cl.values.LogLevel, "logger level")
	flagSet.StringVar(&cl.values.MongoURI, "m", cl.values.MongoURI, "MongoDB connection URI")
	flagSet.StringVar(&cl.values.DBName, "n", cl.values.DBName, "database name")
	flagSet.StringVar(&cl.values.UsersCollection, "u", cl.values.UsersCollection, "users collection name")
	flagSet.StringVar(&cl.values.SubscribersCollection, "s", cl.values.SubscribersCollection, "subscribers collection name")
	flagSet.StringVar(&cl.values.DatabaseDSN, "d", cl.values.DatabaseDSN, "A string with the PostgreSQL connection details")
	flagSet.StringVar(&cl.configPath, "c", "", "path to the JSON config file")

	if err := flagSet.Parse(args[1:]); err != nil {
		return nil, err
	}

	flagSet.Visit(func(f *flag.Flag) {
		cl.set[f.Name] = true
	})

	if cl.set["c"] && cl.configPath == "" {
		return nil, ErrEmptyConfigPath
	}

	return cl, nil
}

func (c *Config) applyFlags(cl *commandLine) {
	if cl.set["a"] {
		c.RunAddr = cl.values.RunAddr
	}
	if cl.set["l"] {
		c.LogLevel = cl.values.LogLevel
	}
	if cl.set["m"] {
		c.MongoURI = cl.values.MongoURI
	}
	if cl.set["n"] {
		c.DBName = cl.values.DBName
	}
	if cl.set["u"] {
		c.UsersCollection = cl.values.UsersCollection
	}
	if cl.set["s"] {
		c.SubscribersCollection = cl.values.SubscribersCollection
	}
	if cl.set["d"] {
		c.DatabaseDSN = cl.values.DatabaseDSN
	}
}

func (c *Config) applyJSONFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read the config file %q: %w", path, err)
	}

	var fromFile fileConfig
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("unable to parse the config file %q: %w", path, err)
	}

	if fromFile.DBConnectionTimeout != "" {
		timeout, err := time.ParseDuration(fromFile.DBConnectionTimeout)
		if err != nil {
			return fmt.Errorf("invalid db_connection_timeout in %q: %w", path, err)
		}
		c.DBConnectionTimeout = timeout
	}

	c.applyStrings(Config{
		RunAddr:               fromFile.RunAddr,
		LogLevel:              fromFile.LogLevel,
		MongoURI:              fromFile.MongoURI,
		DBName:                fromFile.DBName,
		UsersCollection:       fromFile.UsersCollection,
		SubscribersCollection: fromFile.SubscribersCollection,
		DatabaseDSN:           fromFile.DatabaseDSN,
	})

	return nil
}

func (c *Config) applyEnv() error {
	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return err
	}

	c.applyStrings(valuesFromEnv)

	if valuesFromEnv.DBConnectionTimeout != 0 {
		c.DBConnectionTimeout = valuesFromEnv.DBConnectionTimeout
	}

	return nil
}

// applyStrings copies the non-empty string fields of src.
func (c *Config) applyStrings(src Config) {
	if src.RunAddr != "" {
		c.RunAddr = src.RunAddr
	}

	if src.LogLevel != "" {
		c.LogLevel = src.LogLevel
	}

	if src.MongoURI != "" {
		c.MongoURI = src.MongoURI
	}

	if src.DBName != "" {
		c.DBName = src.DBName
	}

	if src.UsersCollection != "" {
		c.UsersCollection = src.UsersCollection
	}

	if src.SubscribersCollection != "" {
		c.SubscribersCollection = src.SubscribersCollection
	}

	if src.DatabaseDSN != "" {
		c.DatabaseDSN = src.DatabaseDSN
	}
}

// New collects the configuration from every source and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	cfg := defaultConfig

	var cl *commandLine
	if !options.disableFlagsParsing {
		cl, err = parseFlags(os.Args)
		if err != nil {
			return nil, err
		}
	}

	configPath := os.Getenv("CONFIG")
	if cl != nil && cl.configPath != "" {
		configPath = cl.configPath
	}
	if configPath != "" {
		if err := cfg.applyJSONFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cl != nil {
		cfg.applyFlags(cl)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
