// Package config loads the lottery command configuration from the
// environment, command line flags and an optional genesis file.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/luca-patrignani/mental-lottery/chain"
)

// DefaultProgramID is where the lottery program is deployed unless configured otherwise.
const DefaultProgramID = "GGXh6VWiPKA7Df3nzvFcRtvcPjRZxpaQqPEQTjAcBPda"

// Config holds the settings shared by every command.
type Config struct {
	DB        string `env:"LOTTERY_DB" envDefault:"lottery.db"`
	Genesis   string `env:"LOTTERY_GENESIS"`
	LogLevel  string `env:"LOTTERY_LOG_LEVEL" envDefault:"info"`
	ProgramID string `env:"LOTTERY_PROGRAM_ID"`
	KeyDir    string `env:"LOTTERY_KEY_DIR" envDefault:".lottery"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseConfig parses environment and then flags into a Config. Flags win.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.ProgramID == "" {
		cfg.ProgramID = DefaultProgramID
	}
	fs.StringVar(&cfg.DB, "db", cfg.DB, "Path of the sqlite account database, or :memory:")
	fs.StringVar(&cfg.Genesis, "genesis", cfg.Genesis, "YAML genesis file applied to a fresh database")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&cfg.ProgramID, "program-id", cfg.ProgramID, "Address of the lottery program")
	fs.StringVar(&cfg.KeyDir, "key-dir", cfg.KeyDir, "Directory for keypair files named without a directory")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Program(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Program() (chain.Pubkey, error) {
	id, err := chain.ParsePubkey(c.ProgramID)
	if err != nil {
		return chain.Pubkey{}, fmt.Errorf("program id: %w", err)
	}
	return id, nil
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// InMemory reports whether accounts should live only for the process.
func (c Config) InMemory() bool {
	return c.DB == "" || c.DB == ":memory:"
}

// KeyPath places a bare keypair file name inside KeyDir. Names with a
// directory component are used as given.
func (c Config) KeyPath(name string) string {
	if c.KeyDir == "" || filepath.Base(name) != name {
		return name
	}
	return filepath.Join(c.KeyDir, name)
}
