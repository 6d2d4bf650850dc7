package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/govm-net/guestenv/repository"
	"github.com/spf13/cobra"
)

var (
	uploadName string
	codeDir    string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.wasm>",
	Short: "Store wasm code in the code directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		code, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		name := uploadName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		mgr, err := repository.NewManager(codeDirOf(cfg))
		if err != nil {
			return err
		}
		hash, err := mgr.RegisterCode(name, code)
		if err != nil {
			return err
		}
		fmt.Printf("Code uploaded: %s (%s, %d bytes)\n", hash, name, len(code))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the code stored in the code directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		mgr, err := repository.NewManager(codeDirOf(cfg))
		if err != nil {
			return err
		}
		list, err := mgr.List()
		if err != nil {
			return err
		}
		for _, md := range list {
			fmt.Printf("%s  %-20s %8d  %s\n", md.Hash, md.Name, md.Size, md.UploadTime.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func codeDirOf(cfg fileConfig) string {
	if codeDir != "" {
		return codeDir
	}
	return cfg.CodeDir
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadName, "name", "n", "", "Code name (defaults to the file name)")
	rootCmd.PersistentFlags().StringVar(&codeDir, "code-dir", "", "Code directory (overrides the config file)")
}
