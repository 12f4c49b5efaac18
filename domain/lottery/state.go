package lottery

import "github.com/luca-patrignani/mental-lottery/chain"

const (
	// MaxParticipants is the fixed number of seats of a lottery.
	MaxParticipants = 3

	// LotteryLen is the size of the encoded lottery account.
	LotteryLen = 1 + chain.PubkeySize + MaxParticipants*chain.PubkeySize + 1

	managerOffset      = 1
	participantsOffset = managerOffset + chain.PubkeySize
	cursorOffset       = participantsOffset + MaxParticipants*chain.PubkeySize
)

// Lottery is the state kept in a lottery account.
type Lottery struct {
	IsInitialized bool
	Manager       chain.Pubkey
	Participants  [MaxParticipants]chain.Pubkey
	// Cursor counts the taken seats and is the index of the next one.
	Cursor uint8
}

// NewLottery returns an initialized lottery with no participants.
func NewLottery(manager chain.Pubkey) Lottery {
	return Lottery{IsInitialized: true, Manager: manager}
}

// Add seats a participant. A full lottery is left untouched.
func (l *Lottery) Add(participant chain.Pubkey) error {
	if l.Cursor >= MaxParticipants {
		return ErrLotteryFull
	}
	l.Participants[l.Cursor] = participant
	l.Cursor++
	return nil
}

// Ready reports whether every seat is taken.
func (l *Lottery) Ready() bool {
	return l.Cursor == MaxParticipants
}

// Entrants returns the seated participants in arrival order.
func (l *Lottery) Entrants() []chain.Pubkey {
	n := min(int(l.Cursor), MaxParticipants)
	out := make([]chain.Pubkey, n)
	copy(out, l.Participants[:n])
	return out
}

// Unpack decodes an initialized lottery account.
func Unpack(src []byte) (Lottery, error) {
	l, err := UnpackUnchecked(src)
	if err != nil {
		return Lottery{}, err
	}
	if !l.IsInitialized {
		return Lottery{}, chain.ErrUninitializedAccount
	}
	if l.Cursor > MaxParticipants {
		return Lottery{}, chain.ErrInvalidAccountData
	}
	return l, nil
}

// UnpackUnchecked decodes the account without requiring it to be initialized.
// It is only meant for InitLottery, which overwrites everything but the flag.
func UnpackUnchecked(src []byte) (Lottery, error) {
	if len(src) != LotteryLen {
		return Lottery{}, chain.ErrInvalidAccountData
	}
	var l Lottery
	switch src[0] {
	case 0:
		l.IsInitialized = false
	case 1:
		l.IsInitialized = true
	default:
		return Lottery{}, chain.ErrInvalidAccountData
	}
	copy(l.Manager[:], src[managerOffset:participantsOffset])
	for i := range l.Participants {
		start := participantsOffset + i*chain.PubkeySize
		copy(l.Participants[i][:], src[start:start+chain.PubkeySize])
	}
	l.Cursor = src[cursorOffset]
	return l, nil
}

// Pack writes every field at its fixed offset, unused seats included.
func (l *Lottery) Pack(dst []byte) error {
	if len(dst) != LotteryLen {
		return chain.ErrInvalidAccountData
	}
	if l.Cursor > MaxParticipants {
		return chain.ErrInvalidAccountData
	}
	dst[0] = 0
	if l.IsInitialized {
		dst[0] = 1
	}
	copy(dst[managerOffset:participantsOffset], l.Manager[:])
	for i, p := range l.Participants {
		start := participantsOffset + i*chain.PubkeySize
		copy(dst[start:start+chain.PubkeySize], p[:])
	}
	dst[cursorOffset] = l.Cursor
	return nil
}
