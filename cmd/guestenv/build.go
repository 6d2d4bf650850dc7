package main

import (
	"fmt"
	"os"

	"github.com/govm-net/guestenv/compiler"
	"github.com/govm-net/guestenv/hostsim"
	"github.com/spf13/cobra"
)

var buildOutput string

var buildCmd = &cobra.Command{
	Use:   "build <dir>",
	Short: "Validate a contract package and compile it to wasm with TinyGo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		code, err := compiler.NewBuilder(cfg.Compiler).Build(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(buildOutput, code, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", buildOutput, err)
		}
		fmt.Printf("Contract built: %s (%s, %d bytes)\n", buildOutput, hostsim.CodeHashOf(code), len(code))
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <dir>",
	Short: "Validate a contract package without building it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		if err := compiler.NewBuilder(cfg.Compiler).Validate(args[0]); err != nil {
			return err
		}
		fmt.Println("Contract sources are valid")
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "contract.wasm", "Output file")
}
