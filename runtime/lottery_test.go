package runtime

import (
	"crypto/ed25519"
	"errors"
	"slices"
	"testing"

	"github.com/luca-patrignani/mental-lottery/accountsdb"
	"github.com/luca-patrignani/mental-lottery/chain"
	"github.com/luca-patrignani/mental-lottery/domain/lottery"
)

const playerFunds = 10 * chain.LamportsPerSol

var lotteryProgramID = chain.Pubkey{0x10, 0x77}

type lotteryBank struct {
	*testBank
	manager ed25519.PrivateKey
	players []ed25519.PrivateKey
}

func newLotteryBank(t *testing.T) *lotteryBank {
	t.Helper()
	tb := newTestBank(t, accountsdb.NewMemStore())
	if err := tb.bank.RegisterProgram(tb.ctx, lotteryProgramID, lottery.Process); err != nil {
		t.Fatal(err)
	}
	lb := &lotteryBank{testBank: tb, manager: tb.funded(playerFunds)}
	for range 4 {
		lb.players = append(lb.players, tb.funded(playerFunds))
	}
	return lb
}

// open creates a rent-exempt lottery account and initializes it in one
// transaction.
func (lb *lotteryBank) open() chain.Pubkey {
	lb.t.Helper()
	region := newKey(lb.t)
	rentMin := lb.bank.Rent().MinimumBalance(lottery.LotteryLen)
	_, err := lb.send([]ed25519.PrivateKey{lb.manager, region},
		chain.CreateAccount(pubkeyOf(lb.manager), pubkeyOf(region), rentMin, lottery.LotteryLen, lotteryProgramID),
		lottery.NewInitLotteryInstruction(lotteryProgramID, pubkeyOf(lb.manager), pubkeyOf(region)),
	)
	if err != nil {
		lb.t.Fatalf("init lottery: %v", err)
	}
	return pubkeyOf(region)
}

func (lb *lotteryBank) play(player ed25519.PrivateKey, region chain.Pubkey) (Receipt, error) {
	return lb.send([]ed25519.PrivateKey{player}, lottery.NewPlayInstruction(lotteryProgramID, pubkeyOf(player), region))
}

func (lb *lotteryBank) draw(claimant ed25519.PrivateKey, region chain.Pubkey) (Receipt, error) {
	return lb.send([]ed25519.PrivateKey{claimant}, lottery.NewDrawInstruction(lotteryProgramID, pubkeyOf(claimant), region))
}

func (lb *lotteryBank) state(region chain.Pubkey) lottery.Lottery {
	lb.t.Helper()
	acct, ok, err := lb.bank.Account(lb.ctx, region)
	if err != nil || !ok {
		lb.t.Fatalf("lottery account missing: %v", err)
	}
	state, err := lottery.Unpack(acct.Data)
	if err != nil {
		lb.t.Fatalf("unpack: %v", err)
	}
	return state
}

func TestLotteryInitRecordsManager(t *testing.T) {
	lb := newLotteryBank(t)
	region := lb.open()

	state := lb.state(region)
	if state.Manager != pubkeyOf(lb.manager) || state.Cursor != 0 {
		t.Fatalf("unexpected state %+v", state)
	}
	rentMin := lb.bank.Rent().MinimumBalance(lottery.LotteryLen)
	if lb.balance(region) != rentMin || lb.balance(pubkeyOf(lb.manager)) != playerFunds-rentMin {
		t.Fatalf("unexpected balances: region %d manager %d", lb.balance(region), lb.balance(pubkeyOf(lb.manager)))
	}
}

func TestLotteryInitNotRentExempt(t *testing.T) {
	lb := newLotteryBank(t)
	region := newKey(t)
	short := lb.bank.Rent().MinimumBalance(lottery.LotteryLen) - 1
	_, err := lb.send([]ed25519.PrivateKey{lb.manager, region},
		chain.CreateAccount(pubkeyOf(lb.manager), pubkeyOf(region), short, lottery.LotteryLen, lotteryProgramID),
		lottery.NewInitLotteryInstruction(lotteryProgramID, pubkeyOf(lb.manager), pubkeyOf(region)),
	)
	if !errors.Is(err, lottery.ErrNotRentExempt) {
		t.Fatalf("expected ErrNotRentExempt, got %v", err)
	}
	var ixErr *InstructionError
	if !errors.As(err, &ixErr) || ixErr.Index != 1 || ixErr.ProgramID != lotteryProgramID {
		t.Fatalf("expected the second instruction to fail, got %v", err)
	}
	if _, ok, _ := lb.bank.Account(lb.ctx, pubkeyOf(region)); ok {
		t.Fatal("failed init left the region behind")
	}
	if lb.balance(pubkeyOf(lb.manager)) != playerFunds {
		t.Fatal("failed init charged the manager")
	}
}

func TestLotteryInitTwice(t *testing.T) {
	lb := newLotteryBank(t)
	region := lb.open()
	_, err := lb.send([]ed25519.PrivateKey{lb.players[0]},
		lottery.NewInitLotteryInstruction(lotteryProgramID, pubkeyOf(lb.players[0]), region))
	if !errors.Is(err, chain.ErrAccountAlreadyInitialized) {
		t.Fatalf("expected ErrAccountAlreadyInitialized, got %v", err)
	}
	if lb.state(region).Manager != pubkeyOf(lb.manager) {
		t.Fatal("second init replaced the manager")
	}
}

// TestLotteryFullRound plays three seats and draws.
func TestLotteryFullRound(t *testing.T) {
	lb := newLotteryBank(t)
	region := lb.open()
	rentMin := lb.bank.Rent().MinimumBalance(lottery.LotteryLen)

	for i, player := range lb.players[:3] {
		receipt, err := lb.play(player, region)
		if err != nil {
			t.Fatalf("play %d failed: %v", i, err)
		}
		if !slices.Contains(receipt.Logs, "Program log: Instruction: Play") {
			t.Fatalf("missing program log in %v", receipt.Logs)
		}
		if lb.balance(pubkeyOf(player)) != playerFunds-lottery.EntryFee {
			t.Fatalf("player %d was not charged the fee", i)
		}
	}
	state := lb.state(region)
	if !state.Ready() {
		t.Fatalf("lottery should be ready, cursor %d", state.Cursor)
	}
	for i, player := range lb.players[:3] {
		if state.Participants[i] != pubkeyOf(player) {
			t.Fatalf("seat %d holds %s", i, state.Participants[i])
		}
	}
	if lb.balance(region) != rentMin+3*lottery.EntryFee {
		t.Fatalf("unexpected pot %d", lb.balance(region))
	}

	if _, err := lb.draw(lb.manager, region); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if got := lb.balance(pubkeyOf(lb.manager)); got != playerFunds+3*lottery.EntryFee {
		t.Fatalf("manager should hold %d, got %d", playerFunds+3*lottery.EntryFee, got)
	}
	if _, ok, _ := lb.bank.Account(lb.ctx, region); ok {
		t.Fatal("closed lottery account was not purged")
	}

	if _, err := lb.play(lb.players[3], region); !errors.Is(err, chain.ErrIncorrectProgramID) {
		t.Fatalf("expected play on a closed lottery to fail with ErrIncorrectProgramID, got %v", err)
	}
}

func TestLotteryFourthPlayerRollsBack(t *testing.T) {
	lb := newLotteryBank(t)
	region := lb.open()
	for _, player := range lb.players[:3] {
		if _, err := lb.play(player, region); err != nil {
			t.Fatal(err)
		}
	}
	pot := lb.balance(region)

	receipt, err := lb.play(lb.players[3], region)
	if !errors.Is(err, lottery.ErrLotteryFull) {
		t.Fatalf("expected ErrLotteryFull, got %v", err)
	}
	if lottery.KindOf(err) != lottery.KindCapacityExceeded {
		t.Fatalf("expected capacity kind, got %s", lottery.KindOf(err))
	}
	if lb.balance(pubkeyOf(lb.players[3])) != playerFunds {
		t.Fatal("rejected player lost the entry fee")
	}
	if lb.balance(region) != pot {
		t.Fatal("pot changed on a rejected play")
	}
	if receipt.Block.Entry.ErrorCode != 2 {
		t.Fatalf("expected error code 2 in ledger, got %d", receipt.Block.Entry.ErrorCode)
	}
}

func TestLotteryDrawBeforeFull(t *testing.T) {
	lb := newLotteryBank(t)
	region := lb.open()
	if _, err := lb.play(lb.players[0], region); err != nil {
		t.Fatal(err)
	}
	if _, err := lb.draw(lb.manager, region); !errors.Is(err, lottery.ErrEntrantsIncomplete) {
		t.Fatalf("expected ErrEntrantsIncomplete, got %v", err)
	}
	if lb.state(region).Cursor != 1 {
		t.Fatal("failed draw changed the lottery")
	}
}

func TestLotteryDrawByStranger(t *testing.T) {
	lb := newLotteryBank(t)
	region := lb.open()
	for _, player := range lb.players[:3] {
		if _, err := lb.play(player, region); err != nil {
			t.Fatal(err)
		}
	}
	pot := lb.balance(region)
	if _, err := lb.draw(lb.players[0], region); !errors.Is(err, lottery.ErrAuthorityMismatch) {
		t.Fatalf("expected ErrAuthorityMismatch, got %v", err)
	}
	if lb.balance(region) != pot {
		t.Fatal("stranger moved the pot")
	}
}

func TestLotteryPlayInsufficientFunds(t *testing.T) {
	lb := newLotteryBank(t)
	region := lb.open()
	poor := lb.funded(lottery.EntryFee - 1)
	if _, err := lb.play(poor, region); !errors.Is(err, chain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if lb.state(region).Cursor != 0 {
		t.Fatal("poor player got a seat")
	}
}
