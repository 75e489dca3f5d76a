/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/fw/fw"
)

var config = core.DefaultConfig()

var flagPortmask string
var flagMacs string
var flagPromisc bool
var flagNoNuma bool

var CmdAugustus = &cobra.Command{
	Use:     "augustus [CONFIG-FILE]",
	Short:   "High-speed ICN content router",
	Version: core.Version,
	Args:    cobra.MaximumNArgs(1),
	Run:     run,
}

func init() {
	flags := CmdAugustus.Flags()
	flags.BoolP("version", "v", false, "Show version")
	flags.StringVarP(&flagPortmask, "portmask", "p", "", "Hexadecimal bitmask of faces to enable")
	flags.StringVarP(&flagMacs, "macs", "m", "", "Space-separated remote MAC addresses for face 0, 1, ..., N")
	flags.BoolVarP(&flagPromisc, "promiscuous", "P", false, "Enable promiscuous mode on ethernet faces")
	flags.BoolVar(&flagNoNuma, "no-numa", false, "Disable NUMA-aware allocation (accepted for compatibility)")
	flags.StringVar(&config.Core.CpuProfile, "cpu-profile", "", "Write CPU profile to file")
	flags.StringVar(&config.Core.MemProfile, "mem-profile", "", "Write memory profile to file")
	flags.StringVar(&config.Core.BlockProfile, "block-profile", "", "Write block profile to file")

	CmdAugustus.AddCommand(CmdFibUpdate)
}

// run starts the daemon and services signals until an interrupt arrives.
func run(cmd *cobra.Command, args []string) {
	if len(args) == 1 {
		config.Core.BaseDir = filepath.Dir(args[0])
		if err := core.LoadConfig(config, args[0]); err != nil {
			core.Log.Fatal(nil, "Unable to load configuration", "err", err)
		}
	}
	if err := applyFlags(config); err != nil {
		cmd.Usage()
		core.Log.Fatal(nil, "Invalid arguments", "err", err)
	}
	if err := config.Validate(); err != nil {
		core.Log.Fatal(nil, "Invalid configuration", "err", err)
	}

	level, _ := core.ParseLogLevel(config.Core.LogLevel)
	core.Log.SetLevel(level)

	augustus := NewAugustus(config)
	augustus.Start()

	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, os.Interrupt, unix.SIGTERM, unix.SIGUSR1, unix.SIGUSR2)
	for {
		receivedSig := <-sigChannel
		switch receivedSig {
		case unix.SIGUSR1:
			fw.PrintStats(os.Stdout, augustus.Workers())
		case unix.SIGUSR2:
			fw.ResetStats(augustus.Workers())
			core.Log.Info(augustus, "Statistics reset")
		default:
			core.Log.Info(augustus, "Received signal - exit", "signal", receivedSig)
			augustus.Stop()
			return
		}
	}
}

// applyFlags folds the command-line flags over the configuration file.
func applyFlags(config *core.Config) error {
	if flagNoNuma {
		core.Log.Info(nil, "NUMA awareness disabled (no-op: allocation is runtime-managed)")
	}

	if flagPortmask != "" {
		mask, err := parseMask64(flagPortmask)
		if err != nil || mask == 0 {
			return fmt.Errorf("invalid portmask %q", flagPortmask)
		}
		if len(config.Faces) == 0 {
			// no configured faces: the mask stands up null faces,
			// which keeps benchmark setups config-free
			for id := 0; id < defn.MaxFaces; id++ {
				if mask&(uint64(1)<<id) != 0 {
					config.Faces = append(config.Faces, core.FaceConfig{Id: uint8(id), Kind: "null"})
				}
			}
		} else {
			kept := config.Faces[:0]
			for _, fc := range config.Faces {
				if mask&(uint64(1)<<fc.Id) != 0 {
					kept = append(kept, fc)
				}
			}
			config.Faces = kept
		}
	} else if len(config.Faces) == 0 {
		return fmt.Errorf("no faces: provide a configuration file or -p PORTMASK")
	}

	if flagMacs != "" {
		macs := strings.Fields(flagMacs)
		for i, mac := range macs {
			if _, err := defn.ParseMacAddr(mac); err != nil {
				return err
			}
			for fi := range config.Faces {
				if int(config.Faces[fi].Id) == i {
					config.Faces[fi].RemoteMac = mac
				}
			}
		}
	}

	if flagPromisc {
		for fi := range config.Faces {
			config.Faces[fi].Promisc = true
		}
	}
	return nil
}

// parseMask64 parses a hexadecimal bitmask, with or without 0x prefix.
func parseMask64(mask string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(mask, "0x"), 16, 64)
}
