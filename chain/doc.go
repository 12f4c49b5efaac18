// Package chain defines the types a ledger program is written against:
// account addresses, the account views handed to a program, instructions,
// program errors, the rent sysvar and the system program instruction set.
//
// # Addresses
//
// A Pubkey is either the public half of an Ed25519 keypair or a program
// derived address. Program derived addresses are hashed from seeds and a
// program id and are guaranteed not to be valid curve points, so no private
// key can sign for them; only the runtime can, on behalf of the program that
// derived them (see InvokeContext.InvokeSigned).
//
// # Errors
//
// Programs fail by returning a *ProgramError. Builtin errors and custom
// program errors share one numeric code space so that the runtime can report
// any failure to the transaction submitter as a single number.
package chain
