package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/luca-patrignani/mental-lottery/chain"
	"github.com/luca-patrignani/mental-lottery/config"
	"github.com/luca-patrignani/mental-lottery/domain/lottery"
	"github.com/luca-patrignani/mental-lottery/runtime"
	"github.com/luca-patrignani/mental-lottery/wallet"
)

const usage = `usage: lottery [flags] <command> [args]

commands:
  keygen [-recover "<mnemonic>"] <file>
  airdrop <pubkey|keyfile> <sol>
  balance <pubkey|keyfile>
  init <manager-keyfile>
  play <player-keyfile> <lottery>
  draw <manager-keyfile> <lottery>
  show <lottery>
  accounts
  demo

Keypair files named without a directory live in -key-dir.`

var errUsage = errors.New(usage)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		if kind := errorKind(err); kind != lottery.KindUnknown {
			pterm.Error.Printfln("%s: %v", kind, err)
		} else {
			pterm.Error.Println(err.Error())
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("lottery", flag.ContinueOnError)
	cfg, err := config.ParseConfig(flags, args)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	rest := flags.Args()
	if len(rest) == 0 {
		return errUsage
	}
	cmd, cmdArgs := rest[0], rest[1:]

	switch cmd {
	case "keygen":
		return keygen(cfg, cmdArgs)
	case "demo":
		cfg.DB = ":memory:"
		return demo(ctx, cfg, logger)
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "airdrop":
		if len(cmdArgs) != 2 {
			return errUsage
		}
		key, err := resolvePubkey(cfg, cmdArgs[0])
		if err != nil {
			return err
		}
		sol, err := strconv.ParseFloat(cmdArgs[1], 64)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		lamports, err := a.airdrop(ctx, key, sol)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Airdropped %s to %s", formatSol(lamports), key)
		return nil

	case "balance":
		if len(cmdArgs) != 1 {
			return errUsage
		}
		key, err := resolvePubkey(cfg, cmdArgs[0])
		if err != nil {
			return err
		}
		lamports, err := a.bank.Balance(ctx, key)
		if err != nil {
			return err
		}
		pterm.Info.Printfln("%s holds %s", key, formatSol(lamports))
		return nil

	case "init":
		if len(cmdArgs) != 1 {
			return errUsage
		}
		manager, err := loadKeypair(cfg, cmdArgs[0])
		if err != nil {
			return err
		}
		var region chain.Pubkey
		receipt, err := withSpinner("Creating the lottery account ...", func() (runtime.Receipt, error) {
			var r runtime.Receipt
			var err error
			region, r, err = a.openLottery(ctx, manager)
			return r, err
		})
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Lottery %s is open", region)
		return render(ctx, a, region, receipt)

	case "play", "draw":
		if len(cmdArgs) != 2 {
			return errUsage
		}
		signer, err := loadKeypair(cfg, cmdArgs[0])
		if err != nil {
			return err
		}
		lotteryKey, err := chain.ParsePubkey(cmdArgs[1])
		if err != nil {
			return err
		}
		action := a.play
		text := "Buying a seat ..."
		if cmd == "draw" {
			action = a.draw
			text = "Drawing the lottery ..."
		}
		receipt, err := withSpinner(text, func() (runtime.Receipt, error) {
			return action(ctx, signer, lotteryKey)
		})
		if err != nil {
			return err
		}
		return render(ctx, a, lotteryKey, receipt)

	case "show":
		if len(cmdArgs) != 1 {
			return errUsage
		}
		lotteryKey, err := chain.ParsePubkey(cmdArgs[0])
		if err != nil {
			return err
		}
		state, pot, err := a.lotteryState(ctx, lotteryKey)
		if err != nil {
			return err
		}
		pterm.Println(lotteryBox(lotteryKey, state, pot))
		return nil

	case "accounts":
		if len(cmdArgs) != 0 {
			return errUsage
		}
		rows, err := a.accounts(ctx)
		if err != nil {
			return err
		}
		table, err := accountsTable(rows, a.programID)
		if err != nil {
			return err
		}
		pterm.Println(table)
		return nil
	}
	return errUsage
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	handler := pterm.NewSlogHandler(pterm.DefaultLogger.WithLevel(ptermLevel(level)))
	return slog.New(handler), nil
}

func ptermLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case level <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}

func keygen(cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("keygen", flag.ContinueOnError)
	recoverFrom := flags.String("recover", "", "Recover the keypair of this mnemonic instead of creating one")
	passphrase := flags.String("passphrase", "", "Optional BIP-39 passphrase")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errUsage
	}
	path := cfg.KeyPath(flags.Arg(0))

	mnemonic := *recoverFrom
	if mnemonic == "" {
		var err error
		if mnemonic, err = wallet.NewMnemonic(); err != nil {
			return err
		}
	}
	kp, err := wallet.FromMnemonic(mnemonic, *passphrase)
	if err != nil {
		return err
	}
	if err := kp.Save(path); err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote keypair %s", filepath.Clean(path))
	pterm.Println(keygenBox(kp.Pubkey(), mnemonic, *recoverFrom == ""))
	return nil
}

// loadKeypair reads a keypair file, looking in the key directory when the
// path does not exist as given.
func loadKeypair(cfg config.Config, arg string) (wallet.Keypair, error) {
	kp, err := wallet.Load(arg)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return kp, err
	}
	if path := cfg.KeyPath(arg); path != arg {
		return wallet.Load(path)
	}
	return kp, err
}

// resolvePubkey accepts an address or a keypair file.
func resolvePubkey(cfg config.Config, arg string) (chain.Pubkey, error) {
	if key, err := chain.ParsePubkey(arg); err == nil {
		return key, nil
	}
	kp, err := loadKeypair(cfg, arg)
	if err != nil {
		return chain.Pubkey{}, fmt.Errorf("%q is neither an address nor a keypair file: %w", arg, err)
	}
	return kp.Pubkey(), nil
}

func withSpinner(text string, fn func() (runtime.Receipt, error)) (runtime.Receipt, error) {
	spinner, _ := pterm.DefaultSpinner.Start(text)
	receipt, err := fn()
	if err != nil {
		spinner.Fail(err.Error())
		if receipt.Signature != "" {
			pterm.Println(receiptBox(receipt))
		}
		return receipt, err
	}
	spinner.Success()
	return receipt, nil
}

func render(ctx context.Context, a *app, lotteryKey chain.Pubkey, receipt runtime.Receipt) error {
	pterm.Println(receiptBox(receipt))
	state, pot, err := a.lotteryState(ctx, lotteryKey)
	if errors.Is(err, errNoLottery) {
		pterm.Info.Printfln("Lottery %s is closed", lotteryKey)
		return nil
	}
	if err != nil {
		return err
	}
	pterm.Println(lotteryBox(lotteryKey, state, pot))
	return nil
}
