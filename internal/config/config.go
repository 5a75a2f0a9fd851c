// Package config loads the lottery server configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var ErrInvalid = errors.New("invalid configuration")

// Duration is a time.Duration written as a string such as "30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Server struct {
	Listen string `toml:"listen"`
	// Release switches gin out of debug mode.
	Release bool `toml:"release"`
}

type Lottery struct {
	// Operator is the owner written into a fresh storage.
	Operator     string   `toml:"operator"`
	RevealWindow Duration `toml:"reveal_window"`
	// FinalizeEvery is the finalizer sweep interval; zero disables it.
	FinalizeEvery Duration `toml:"finalize_every"`
}

type Storage struct {
	Path string `toml:"path"`
}

type Token struct {
	Symbol string `toml:"symbol"`
	// Faucet is the amount minted per faucet request, in base units.
	Faucet string `toml:"faucet"`
}

type Events struct {
	History int `toml:"history"`
}

type Config struct {
	Server  Server  `toml:"server"`
	Lottery Lottery `toml:"lottery"`
	Storage Storage `toml:"storage"`
	Token   Token   `toml:"token"`
	Events  Events  `toml:"events"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() Config {
	return Config{
		Server: Server{Listen: ":8080"},
		Lottery: Lottery{
			Operator:      "0x00000000000000000000000000000000000000aa",
			RevealWindow:  Duration{time.Hour},
			FinalizeEvery: Duration{time.Minute},
		},
		Storage: Storage{Path: "lottery.db"},
		Token:   Token{Symbol: "LT", Faucet: "1000"},
		Events:  Events{History: 1024},
	}
}

// Load decodes the file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Parse decodes TOML text over the defaults.
func Parse(text string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(text, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("%w: server.listen is empty", ErrInvalid)
	}
	if !common.IsHexAddress(c.Lottery.Operator) {
		return fmt.Errorf("%w: lottery.operator %q is not an address", ErrInvalid, c.Lottery.Operator)
	}
	if c.Lottery.RevealWindow.Duration <= 0 {
		return fmt.Errorf("%w: lottery.reveal_window must be positive", ErrInvalid)
	}
	if c.Lottery.FinalizeEvery.Duration < 0 {
		return fmt.Errorf("%w: lottery.finalize_every is negative", ErrInvalid)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path is empty", ErrInvalid)
	}
	if c.Token.Symbol == "" {
		return fmt.Errorf("%w: token.symbol is empty", ErrInvalid)
	}
	if _, err := uint256.FromDecimal(c.Token.Faucet); err != nil {
		return fmt.Errorf("%w: token.faucet: %v", ErrInvalid, err)
	}
	return nil
}

func (c Config) OperatorAddress() common.Address {
	return common.HexToAddress(c.Lottery.Operator)
}

// FaucetAmount is the validated faucet amount.
func (c Config) FaucetAmount() *uint256.Int {
	v, err := uint256.FromDecimal(c.Token.Faucet)
	if err != nil {
		return new(uint256.Int)
	}
	return v
}
