package main

import (
	"fmt"
	"os"

	"github.com/govm-net/guestenv/compiler"
	"github.com/govm-net/guestenv/hostsim"
	"github.com/govm-net/guestenv/repository"
	"github.com/govm-net/guestenv/store/db"
	"github.com/govm-net/guestenv/vm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "guestenv",
	Short: "Contract environment command line tool",
	Long: `Command line tool for hashing, storing and running wasm contracts
against the in-process reference host.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger()
	},
}

func setupLogger() error {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	hostsim.SetLogger(l.Named("hostsim"))
	vm.SetLogger(l.Named("vm"))
	db.SetLogger(l.Named("store"))
	repository.SetLogger(l.Named("repository"))
	compiler.SetLogger(l.Named("compiler"))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.AddCommand(codehashCmd)
	rootCmd.AddCommand(selectorCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
