package main

import (
	"fmt"
	"os"

	"github.com/govm-net/guestenv/dispatch"
	"github.com/govm-net/guestenv/hostsim"
	"github.com/spf13/cobra"
)

var codehashCmd = &cobra.Command{
	Use:   "codehash <file.wasm>...",
	Short: "Print the code hash of wasm files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			code, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			fmt.Printf("%s  %s\n", hostsim.CodeHashOf(code), path)
		}
		return nil
	},
}

var selectorCmd = &cobra.Command{
	Use:   "selector <name>...",
	Short: "Print the selector derived from constructor or message names",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range args {
			fmt.Printf("%s  %s\n", dispatch.SelectorOf(name), name)
		}
		return nil
	},
}
