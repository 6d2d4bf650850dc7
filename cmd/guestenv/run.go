package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/hostsim"
	"github.com/govm-net/guestenv/repository"
	"github.com/govm-net/guestenv/store"
	_ "github.com/govm-net/guestenv/store/db"
	_ "github.com/govm-net/guestenv/store/memory"
	"github.com/govm-net/guestenv/vm"
	"github.com/spf13/cobra"
)

var (
	runCode  string
	runHash  string
	runCtor  string
	runMsgs  []string
	runValue uint64
	runSalt  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Deploy a wasm contract on the reference host and call it",
	Long: `Deploy a wasm contract with the --ctor input, then send every --msg
input to it in order. Inputs are hex encoded selectors followed by
their encoded arguments.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		code, err := loadCode(cfg)
		if err != nil {
			return err
		}
		ctor, err := decodeHex(runCtor)
		if err != nil {
			return fmt.Errorf("invalid --ctor: %w", err)
		}
		salt, err := decodeHex(runSalt)
		if err != nil {
			return fmt.Errorf("invalid --salt: %w", err)
		}
		msgs := make([][]byte, len(runMsgs))
		for i, m := range runMsgs {
			if msgs[i], err = decodeHex(m); err != nil {
				return fmt.Errorf("invalid --msg %d: %w", i, err)
			}
		}

		st, err := store.Get(cfg.Store.Type, cfg.Store.Params)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		engine, err := vm.NewEngine(ctx, cfg.VM)
		if err != nil {
			return err
		}
		defer engine.Close(ctx)
		contract, err := engine.Load(ctx, code)
		if err != nil {
			return err
		}

		origin := core.AccountIDFromString(cfg.Origin)
		host := hostsim.New(cfg.Host, st)
		host.SetBalance(origin, core.NewBalance(cfg.Funds))
		host.PutCode(contract.CodeHash(), contract)

		value := core.NewBalance(runValue)
		addr, res, err := host.DeployContract(origin, contract.CodeHash(), value, ctor, salt)
		printResult("deploy", res)
		if err != nil {
			return fmt.Errorf("deploy failed: %w", err)
		}
		if res.Reverted() {
			return fmt.Errorf("constructor reverted")
		}
		fmt.Printf("Contract: %s\n", addr)

		events := 0
		for i, msg := range msgs {
			res, err := host.CallContract(origin, addr, value, msg)
			printResult(fmt.Sprintf("call %d", i), res)
			if err != nil {
				return fmt.Errorf("call %d failed: %w", i, err)
			}
			for _, ev := range host.Events()[events:] {
				fmt.Printf("  event topics=%s data=0x%x\n", topicsString(ev.Topics), ev.Data)
			}
			events = len(host.Events())
		}
		for _, msg := range host.DebugMessages() {
			fmt.Printf("debug: %s\n", msg)
		}
		return nil
	},
}

func loadCode(cfg fileConfig) ([]byte, error) {
	switch {
	case runCode != "" && runHash != "":
		return nil, fmt.Errorf("--code and --hash are mutually exclusive")
	case runCode != "":
		code, err := os.ReadFile(runCode)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", runCode, err)
		}
		return code, nil
	case runHash != "":
		mgr, err := repository.NewManager(codeDirOf(cfg))
		if err != nil {
			return nil, err
		}
		c, err := mgr.GetCode(core.HashFromString(runHash))
		if err != nil {
			return nil, err
		}
		return c.Wasm, nil
	}
	return nil, fmt.Errorf("one of --code or --hash is required")
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func printResult(label string, res hostsim.ExecResult) {
	status := "ok"
	switch {
	case res.Err != nil:
		status = "trapped"
	case res.Reverted():
		status = "reverted"
	}
	fmt.Printf("%s: %s gas=%d output=0x%x\n", label, status, res.GasUsed, res.Data)
}

func topicsString(topics []core.Hash) string {
	s := make([]string, len(topics))
	for i, t := range topics {
		s[i] = t.String()
	}
	return "[" + strings.Join(s, " ") + "]"
}

func init() {
	runCmd.Flags().StringVar(&runCode, "code", "", "Wasm file to deploy")
	runCmd.Flags().StringVar(&runHash, "hash", "", "Hash of uploaded code to deploy")
	runCmd.Flags().StringVar(&runCtor, "ctor", "", "Hex encoded constructor input")
	runCmd.Flags().StringArrayVar(&runMsgs, "msg", nil, "Hex encoded message input (repeatable)")
	runCmd.Flags().Uint64Var(&runValue, "value", 0, "Value transferred with the deploy and every call")
	runCmd.Flags().StringVar(&runSalt, "salt", "", "Hex encoded instantiation salt")
}
