// Command siliconlinker is a demo/scripting harness for the linker
// package. It stands in for the builder DSLs, MIDI/MusicXML importers,
// and audio synthesis backends that are named external collaborators
// rather than part of the core (spec.md §1, §6): each subcommand builds
// a fresh in-process arena (persistence across invocations is an
// explicit non-goal), applies one or more operations, and prints the
// result.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/symphonyscript/silicon-linker"
)

var (
	flagNodeCapacity uint32
	flagPPQ          uint32
	flagBPM          uint32
	flagSafeZone     uint32
	flagSampleRate   uint32
)

func newArenaFromFlags() (*linker.Arena, error) {
	return linker.NewArena(
		linker.WithNodeCapacity(flagNodeCapacity),
		linker.WithPPQ(flagPPQ),
		linker.WithBPM(flagBPM),
		linker.WithSafeZoneTicks(flagSafeZone),
		linker.WithSampleRate(flagSampleRate),
	)
}

func printHeader(a *linker.Arena) {
	fmt.Printf(
		"node_count=%d free_count=%d node_capacity=%d head_ptr=%d playhead_tick=%d error_flag=%s\n",
		a.NodeCount(), a.FreeCount(), a.NodeCapacity(), a.HeadPtr(), a.PlayheadTick(), a.ErrorFlag(),
	)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "siliconlinker",
		Short: "Demo harness for the Silicon Linker arena",
	}
	rootCmd.PersistentFlags().Uint32Var(&flagNodeCapacity, "node-capacity", 4096, "total node heap capacity")
	rootCmd.PersistentFlags().Uint32Var(&flagPPQ, "ppq", 480, "pulses per quarter note")
	rootCmd.PersistentFlags().Uint32Var(&flagBPM, "bpm", 120, "beats per minute")
	rootCmd.PersistentFlags().Uint32Var(&flagSafeZone, "safe-zone", 960, "safe zone, in ticks, ahead of the playhead")
	rootCmd.PersistentFlags().Uint32Var(&flagSampleRate, "sample-rate", 48000, "audio sample rate")

	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newInsertCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newScenarioCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Build an arena with the given options and print its header state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newArenaFromFlags()
			if err != nil {
				return err
			}
			printHeader(a)
			return nil
		},
	}
}

func newInsertCmd() *cobra.Command {
	var (
		pitch    uint8
		velocity uint8
		baseTick uint32
		duration uint32
		sourceID uint32
	)
	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Build an arena, insert a single NOTE at the head, and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newArenaFromFlags()
			if err != nil {
				return err
			}
			lk := linker.NewLinker(a)
			ptr, err := lk.InsertHead(linker.NodeFields{
				Opcode:   linker.OpcodeNote,
				Pitch:    pitch,
				Velocity: velocity,
				BaseTick: baseTick,
				Duration: duration,
				SourceID: sourceID,
			})
			if err != nil {
				return err
			}
			fmt.Printf("inserted node_ptr=%d\n", ptr)
			printHeader(a)
			return nil
		},
	}
	cmd.Flags().Uint8Var(&pitch, "pitch", 60, "MIDI pitch")
	cmd.Flags().Uint8Var(&velocity, "velocity", 100, "MIDI velocity")
	cmd.Flags().Uint32Var(&baseTick, "base-tick", 0, "grid-aligned event time, in ticks")
	cmd.Flags().Uint32Var(&duration, "duration", 240, "event duration, in ticks")
	cmd.Flags().Uint32Var(&sourceID, "source-id", 1, "externally supplied stable identity")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		quanta       uint32
		quantumSize  uint32
		insertBefore uint32
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Insert a demo note and render N audio quanta, printing emitted events",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newArenaFromFlags()
			if err != nil {
				return err
			}
			lk := linker.NewLinker(a)
			if _, err := lk.InsertHead(linker.NodeFields{
				Opcode:   linker.OpcodeNote,
				Pitch:    60,
				Velocity: 100,
				BaseTick: insertBefore,
				Duration: 240,
				SourceID: 1,
			}); err != nil {
				return err
			}
			lk.RenderQuantum(0) // audio side: observe the pending commit and acknowledge it
			if err := a.SyncAck(); err != nil {
				return err
			}
			for q := uint32(0); q < quanta; q++ {
				events := lk.RenderQuantum(quantumSize)
				for _, e := range events {
					fmt.Printf(
						"quantum=%d trigger_tick=%d pitch=%d velocity=%d duration=%d source_id=%d\n",
						q, e.TriggerTick, e.Pitch, e.Velocity, e.Duration, e.SourceID,
					)
				}
			}
			return nil
		},
	}
	cmd.Flags().Uint32Var(&quanta, "quanta", 64, "number of audio quanta to render")
	cmd.Flags().Uint32Var(&quantumSize, "quantum-frames", 128, "audio frames per quantum")
	cmd.Flags().Uint32Var(&insertBefore, "base-tick", 0, "base tick of the inserted demo note")
	return cmd
}

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario",
		Short: "Run the single-note end-to-end scenario and print pass/fail",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := linker.NewArena(
				linker.WithNodeCapacity(4096),
				linker.WithPPQ(480),
				linker.WithBPM(120),
				linker.WithSafeZoneTicks(960),
				linker.WithSampleRate(48000),
			)
			if err != nil {
				return err
			}
			lk := linker.NewLinker(a)
			if _, err := lk.InsertHead(linker.NodeFields{
				Opcode:   linker.OpcodeNote,
				Pitch:    60,
				Velocity: 100,
				BaseTick: 1920,
				Duration: 240,
				SourceID: 1,
			}); err != nil {
				return err
			}
			lk.RenderQuantum(0) // audio side: observe the pending commit and acknowledge it
			if err := a.SyncAck(); err != nil {
				return err
			}
			a.SetBPM(120)
			var quantumFrames uint32 = 50 * 48000 / (120 / 60 * 480)
			if quantumFrames == 0 {
				quantumFrames = 20
			}
			found := false
			for q := 0; q < 64 && !found; q++ {
				for _, e := range lk.RenderQuantum(quantumFrames) {
					if e.TriggerTick == 1920 && e.Pitch == 60 && e.Velocity == 100 {
						found = true
					}
				}
			}
			if found {
				fmt.Println("S1 single-note scenario: PASS")
			} else {
				fmt.Println("S1 single-note scenario: FAIL")
				os.Exit(1)
			}
			return nil
		},
	}
}
