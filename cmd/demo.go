package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/luca-patrignani/mental-lottery/chain"
	"github.com/luca-patrignani/mental-lottery/config"
	"github.com/luca-patrignani/mental-lottery/domain/lottery"
	"github.com/luca-patrignani/mental-lottery/wallet"
)

// demoRound is everything a demo run produced, for callers that check it.
type demoRound struct {
	lottery       chain.Pubkey
	manager       wallet.Keypair
	players       []wallet.Keypair
	strangerErr   error
	latecomerErr  error
	managerPayout uint64
}

// playRound opens a lottery, fills it, lets a stranger and a fourth player
// fail, and has the manager draw.
func playRound(ctx context.Context, a *app) (demoRound, error) {
	var round demoRound
	var err error
	if round.manager, err = wallet.Generate(); err != nil {
		return round, err
	}
	if _, err := a.airdrop(ctx, round.manager.Pubkey(), 2); err != nil {
		return round, err
	}
	for range lottery.MaxParticipants + 1 {
		kp, err := wallet.Generate()
		if err != nil {
			return round, err
		}
		if _, err := a.airdrop(ctx, kp.Pubkey(), 2); err != nil {
			return round, err
		}
		round.players = append(round.players, kp)
	}

	if round.lottery, _, err = a.openLottery(ctx, round.manager); err != nil {
		return round, fmt.Errorf("open lottery: %w", err)
	}
	for i, p := range round.players[:lottery.MaxParticipants] {
		if _, err := a.play(ctx, p, round.lottery); err != nil {
			return round, fmt.Errorf("player %d: %w", i+1, err)
		}
	}

	_, round.latecomerErr = a.play(ctx, round.players[lottery.MaxParticipants], round.lottery)
	if !errors.Is(round.latecomerErr, lottery.ErrLotteryFull) {
		return round, fmt.Errorf("fourth player: expected a full lottery, got %v", round.latecomerErr)
	}
	_, round.strangerErr = a.draw(ctx, round.players[0], round.lottery)
	if !errors.Is(round.strangerErr, lottery.ErrAuthorityMismatch) {
		return round, fmt.Errorf("stranger draw: expected an authority mismatch, got %v", round.strangerErr)
	}

	before, err := a.bank.Balance(ctx, round.manager.Pubkey())
	if err != nil {
		return round, err
	}
	if _, err := a.draw(ctx, round.manager, round.lottery); err != nil {
		return round, fmt.Errorf("manager draw: %w", err)
	}
	after, err := a.bank.Balance(ctx, round.manager.Pubkey())
	if err != nil {
		return round, err
	}
	round.managerPayout = after - before
	return round, nil
}

func demo(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("M", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("ental ", pterm.FgDarkGray.ToStyle()),
		putils.LettersFromStringWithStyle("L", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("ottery", pterm.FgDarkGray.ToStyle()),
	).Render()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	spinner, _ := pterm.DefaultSpinner.Start("Playing one round on an in-memory ledger ...")
	round, err := playRound(ctx, a)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success()

	pterm.Info.Printfln("Manager %s opened lottery %s", round.manager.Pubkey(), round.lottery)
	for i, p := range round.players[:lottery.MaxParticipants] {
		pterm.Info.Printfln("Player %d %s bought a seat for %s", i+1, p.Pubkey(), formatSol(lottery.EntryFee))
	}
	pterm.Warning.Printfln("A fourth player was turned away: %v", round.latecomerErr)
	pterm.Warning.Printfln("Player 1 could not draw: %v", round.strangerErr)
	pterm.Success.Printfln("Manager drew the lottery and received %s", formatSol(round.managerPayout))

	if err := a.bank.Ledger().Verify(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	pterm.Info.Printfln("Ledger holds %d blocks and verifies", a.bank.Ledger().Len())

	table, err := metricsTable(a.registry)
	if err != nil {
		return err
	}
	pterm.Println(table)
	return nil
}
