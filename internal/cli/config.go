package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/ir"
)

// Config holds the settings shared by every command. It can be read from
// a YAML file:
//
//	catalog: ./catalog
//	events: ./events.yaml
//	ledger: ./bosync.db
//	proposer: init0
//	rate: 20
type Config struct {
	Catalog        string        `yaml:"catalog"`
	Events         string        `yaml:"events"`
	Ledger         string        `yaml:"ledger"`
	Quorum         int           `yaml:"quorum"`
	Proposer       string        `yaml:"proposer"`
	Approver       string        `yaml:"approver"`
	Authority      string        `yaml:"authority"`
	Tolerance      string        `yaml:"tolerance"`
	Rate           float64       `yaml:"rate"`
	Burst          int           `yaml:"burst"`
	MaxProposalOps int           `yaml:"max_proposal_ops"`
	Expiration     time.Duration `yaml:"expiration"`
}

// DefaultConfig returns the flag defaults.
func DefaultConfig() Config {
	return Config{
		Ledger:     "bosync.db",
		Authority:  string(engine.DefaultAuthority),
		Tolerance:  "0",
		Burst:      1,
		Expiration: engine.DefaultExpiration,
	}
}

func (c *Config) bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&c.Catalog, "catalog", c.Catalog, "catalog directory")
	flags.StringVar(&c.Events, "events", c.Events, "events file")
	flags.StringVar(&c.Ledger, "ledger", c.Ledger, "path to the SQLite ledger")
	flags.IntVar(&c.Quorum, "quorum", c.Quorum, "witness approvals a proposal needs (0 = simple majority)")
	flags.StringVar(&c.Proposer, "proposer", c.Proposer, "account proposing new operations (id or name)")
	flags.StringVar(&c.Approver, "approver", c.Approver, "account approving matching proposals (defaults to the proposer)")
	flags.StringVar(&c.Authority, "authority", c.Authority, "account whose pending proposals are inspected")
	flags.StringVar(&c.Tolerance, "tolerance", c.Tolerance, "fuzzy tolerance of dynamic market groups that declare none")
	flags.Float64Var(&c.Rate, "rate", c.Rate, "ledger calls per second (0 = unlimited)")
	flags.IntVar(&c.Burst, "burst", c.Burst, "ledger call burst when --rate is set")
	flags.IntVar(&c.MaxProposalOps, "max-proposal-ops", c.MaxProposalOps, "operations per proposal (0 = unlimited)")
	flags.DurationVar(&c.Expiration, "expiration", c.Expiration, "lifetime of created proposals")
}

// LoadConfig decodes a config file. Unknown keys are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Config
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// loadConfig merges the config file into the flag values. A flag given on
// the command line always wins; an unset flag takes the file value when
// the file sets one.
func (o *RootOptions) loadConfig(changed func(name string) bool) error {
	if o.ConfigPath != "" {
		f, err := os.Open(o.ConfigPath)
		if err != nil {
			return fmt.Errorf("open config: %w", err)
		}
		file, err := LoadConfig(f)
		f.Close()
		if err != nil {
			return err
		}
		o.Config.merge(file, changed)
	}
	return o.Config.validate()
}

func (c *Config) merge(file Config, changed func(name string) bool) {
	override(changed("catalog"), &c.Catalog, file.Catalog)
	override(changed("events"), &c.Events, file.Events)
	override(changed("ledger"), &c.Ledger, file.Ledger)
	override(changed("quorum"), &c.Quorum, file.Quorum)
	override(changed("proposer"), &c.Proposer, file.Proposer)
	override(changed("approver"), &c.Approver, file.Approver)
	override(changed("authority"), &c.Authority, file.Authority)
	override(changed("tolerance"), &c.Tolerance, file.Tolerance)
	override(changed("rate"), &c.Rate, file.Rate)
	override(changed("burst"), &c.Burst, file.Burst)
	override(changed("max-proposal-ops"), &c.MaxProposalOps, file.MaxProposalOps)
	override(changed("expiration"), &c.Expiration, file.Expiration)
}

func override[T comparable](flagSet bool, dst *T, v T) {
	var zero T
	if !flagSet && v != zero {
		*dst = v
	}
}

func (c *Config) validate() error {
	if _, err := c.tolerance(); err != nil {
		return err
	}
	if _, err := ir.ParseObjectID(c.Authority); err != nil {
		return fmt.Errorf("authority: %w", err)
	}
	switch {
	case c.Rate < 0:
		return fmt.Errorf("rate must not be negative, got %v", c.Rate)
	case c.MaxProposalOps < 0:
		return fmt.Errorf("max-proposal-ops must not be negative, got %d", c.MaxProposalOps)
	case c.Quorum < 0:
		return fmt.Errorf("quorum must not be negative, got %d", c.Quorum)
	case c.Expiration <= 0:
		return fmt.Errorf("expiration must be positive, got %s", c.Expiration)
	}
	return nil
}

func (c *Config) tolerance() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Tolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("tolerance %q: %w", c.Tolerance, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("tolerance must not be negative, got %s", c.Tolerance)
	}
	return d, nil
}
