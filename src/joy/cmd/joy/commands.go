package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hallway/src/anticipation"
	"hallway/src/config"
	"hallway/src/hardware/sim"
	"hallway/src/lib/arena"
	"hallway/src/lib/trust"
	"hallway/src/lib/upbeat"
)

var (
	dumpFrom uint32
	dumpLen  uint32
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Boot and drop straight into the Hallway Monitor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := boot()
		if err != nil {
			return err
		}
		return k.run(cmd.Context(), func() {
			k.monitor().Interactive()
		})
	},
}

var panicCmd = &cobra.Command{
	Use:   "panic [message]",
	Short: "Boot and panic, to see what the panic path does",
	Long: `Boots the board and then panics with the given message. The panic
handler takes the console back, prints the message and location, offers
the Hallway Monitor (debug builds), and then blinks the LED forever.
Type ^C to get out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := boot()
		if err != nil {
			return err
		}
		msg := "panic requested"
		if len(args) > 0 {
			msg = strings.Join(args, " ")
		}
		return k.run(cmd.Context(), func() {
			trust.Fatalf("%s", msg)
		})
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <image.hex>",
	Short: "Load an Intel HEX image into a board and report on it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		board, err := sim.NewBoard(sim.Config{
			RAMBase: arena.Addr(cfg.Board.RAMBase),
			RAMSize: cfg.Board.RAMSize,
		}, cmd.ErrOrStderr(), upbeat.NewController())
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		img, err := anticipation.Load(f, board.Memory(), nil)
		if err != nil {
			return fmt.Errorf("loading %s: %w", args[0], err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d lines, %d bytes\n", img.Lines, img.Bytes)
		if img.HasEntry {
			fmt.Fprintf(out, "entry 0x%x\n", uint32(img.Entry))
		}
		if dumpLen > 0 {
			return upbeat.Dump(out, board.Memory(), arena.Addr(dumpFrom), dumpLen)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "board: 0x%x bytes at 0x%x, tick %s\n",
			cfg.Board.RAMSize, cfg.Board.RAMBase, cfg.GetTickPeriod())
		dev := cfg.Console.Device
		if dev == "" {
			dev = "stdio"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "console: %s at %d baud, lines up to %d\n",
			dev, cfg.Board.BaudRate, cfg.Console.LineMax)
		for _, m := range cfg.Markers {
			fmt.Fprintf(cmd.OutOrStdout(), "marker %s at 0x%x\n", m.Name, m.Addr)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write the default configuration to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.DefaultConfig().Save(args[0])
	},
}
