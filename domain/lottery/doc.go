// Package lottery implements a three seat lottery as a ledger program.
//
// A manager initializes a program owned lottery account, three players each
// pay EntryFee to take a seat, and the manager draws once every seat is taken,
// receiving the whole pot. The account layout is fixed at LotteryLen bytes:
//
//	offset  len  field
//	0       1    initialized flag (0 or 1)
//	1       32   manager
//	33      96   participants, 3 slots of 32 bytes
//	129     1    cursor (0..3)
//
// The winner is not chosen at random: Draw always pays the manager.
package lottery
