/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the full daemon configuration, read from a YAML file with
// defaults from DefaultConfig.
type Config struct {
	Core    CoreConfig    `yaml:"core"`
	Fib     TableConfig   `yaml:"fib"`
	Pit     PitConfig     `yaml:"pit"`
	Cs      TableConfig   `yaml:"cs"`
	Fwd     FwdConfig     `yaml:"fwd"`
	Control ControlConfig `yaml:"control"`
	Faces   []FaceConfig  `yaml:"faces"`
}

type CoreConfig struct {
	LogLevel     string `yaml:"log_level"`
	BaseDir      string `yaml:"-"`
	CpuProfile   string `yaml:"cpu_profile"`
	MemProfile   string `yaml:"mem_profile"`
	BlockProfile string `yaml:"block_profile"`
}

// TableConfig dimensions one hash table (bucket count and ring/record size).
type TableConfig struct {
	NumBuckets  uint32 `yaml:"num_buckets"`
	MaxElements uint32 `yaml:"max_elements"`
}

type PitConfig struct {
	NumBuckets  uint32 `yaml:"num_buckets"`
	MaxElements uint32 `yaml:"max_elements"`
	TtlUs       uint64 `yaml:"ttl_us"`
}

type FwdConfig struct {
	// Workers is the number of forwarding workers. Zero means one worker
	// per CPU, minus one reserved for the controller.
	Workers    int    `yaml:"workers"`
	BurstSize  int    `yaml:"burst_size"`
	DrainUs    uint64 `yaml:"drain_us"`
	PitPurgeUs uint64 `yaml:"pit_purge_us"`
	MbufSize   int    `yaml:"mbuf_size"`
}

type ControlConfig struct {
	BindAddr    string `yaml:"bind_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// FaceConfig describes one face: the transport kind, its endpoints and the
// Ethernet addresses used when rewriting forwarded frames.
type FaceConfig struct {
	Id        uint8  `yaml:"id"`
	Kind      string `yaml:"kind"` // ether | udp | ws | null
	Ifname    string `yaml:"ifname"`
	Local     string `yaml:"local"`
	Remote    string `yaml:"remote"`
	LocalMac  string `yaml:"local_mac"`
	RemoteMac string `yaml:"remote_mac"`
	Promisc   bool   `yaml:"promisc"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			LogLevel: "INFO",
		},
		Fib: TableConfig{
			NumBuckets:  1024,
			MaxElements: 4096,
		},
		Pit: PitConfig{
			NumBuckets:  1024,
			MaxElements: 8192,
			TtlUs:       5000000,
		},
		Cs: TableConfig{
			NumBuckets:  1024,
			MaxElements: 4096,
		},
		Fwd: FwdConfig{
			Workers:    0,
			BurstSize:  32,
			DrainUs:    100,
			PitPurgeUs: 20000000,
			MbufSize:   2048,
		},
		Control: ControlConfig{
			BindAddr: "127.0.0.1:9000",
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults already
// present in cfg.
func LoadConfig(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("unable to read configuration file: %w", err)
	}
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return fmt.Errorf("unable to parse configuration file: %w", err)
	}
	return nil
}

// Validate checks configuration invariants that would otherwise surface as
// obscure failures deep in initialization.
func (c *Config) Validate() error {
	if c.Fib.NumBuckets == 0 || c.Pit.NumBuckets == 0 || c.Cs.NumBuckets == 0 {
		return fmt.Errorf("table bucket counts must be nonzero")
	}
	if c.Fib.MaxElements == 0 || c.Pit.MaxElements == 0 || c.Cs.MaxElements == 0 {
		return fmt.Errorf("table sizes must be nonzero")
	}
	if c.Fwd.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}
	if _, err := ParseLogLevel(c.Core.LogLevel); err != nil {
		return err
	}
	seen := make(map[uint8]bool)
	for _, f := range c.Faces {
		if f.Id >= 64 {
			return fmt.Errorf("face id %d out of range: the face bitmask is 64 bits wide", f.Id)
		}
		if seen[f.Id] {
			return fmt.Errorf("duplicate face id %d", f.Id)
		}
		seen[f.Id] = true
	}
	return nil
}
