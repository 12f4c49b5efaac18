package runtime

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58/base58"

	"github.com/luca-patrignani/mental-lottery/chain"
)

// Message is the signed part of a transaction.
type Message struct {
	FeePayer        chain.Pubkey        `json:"fee_payer"`
	RecentBlockhash string              `json:"recent_blockhash"`
	Instructions    []chain.Instruction `json:"instructions"`
}

// Signature binds one signer to the serialized message.
type Signature struct {
	Signer chain.Pubkey `json:"signer"`
	Bytes  []byte       `json:"bytes"`
}

type Transaction struct {
	Message    Message     `json:"message"`
	Signatures []Signature `json:"signatures,omitempty"`
}

// NewTransaction builds an unsigned transaction. The blockhash makes otherwise
// identical transactions distinct; use Bank.LatestBlockhash.
func NewTransaction(feePayer chain.Pubkey, blockhash string, instructions ...chain.Instruction) *Transaction {
	return &Transaction{
		Message: Message{
			FeePayer:        feePayer,
			RecentBlockhash: blockhash,
			Instructions:    instructions,
		},
	}
}

// serialize returns the JSON marshaled form of the Transaction with the
// Signatures field cleared so signatures never sign themselves.
func (tx *Transaction) serialize() ([]byte, error) {
	tmp := *tx
	tmp.Signatures = nil
	return json.Marshal(tmp)
}

// Signers lists every key that must sign: the fee payer first, then each
// signer account of each instruction in order of first appearance.
func (tx *Transaction) Signers() []chain.Pubkey {
	seen := map[chain.Pubkey]bool{tx.Message.FeePayer: true}
	signers := []chain.Pubkey{tx.Message.FeePayer}
	for _, ix := range tx.Message.Instructions {
		for _, meta := range ix.Accounts {
			if meta.IsSigner && !seen[meta.Pubkey] {
				seen[meta.Pubkey] = true
				signers = append(signers, meta.Pubkey)
			}
		}
	}
	return signers
}

// Sign adds a signature for every key in keys. A key that is not a required
// signer is an error; required signers without a key are left for Verify to
// report.
func (tx *Transaction) Sign(keys ...ed25519.PrivateKey) error {
	b, err := tx.serialize()
	if err != nil {
		return err
	}
	required := make(map[chain.Pubkey]bool)
	for _, s := range tx.Signers() {
		required[s] = true
	}
	for _, priv := range keys {
		signer := chain.PubkeyFromPublicKey(priv.Public().(ed25519.PublicKey))
		if !required[signer] {
			return fmt.Errorf("key %s is not a signer of this transaction", signer)
		}
		tx.setSignature(Signature{Signer: signer, Bytes: ed25519.Sign(priv, b)})
	}
	return nil
}

func (tx *Transaction) setSignature(sig Signature) {
	for i := range tx.Signatures {
		if tx.Signatures[i].Signer == sig.Signer {
			tx.Signatures[i] = sig
			return
		}
	}
	tx.Signatures = append(tx.Signatures, sig)
}

func (tx *Transaction) signatureOf(signer chain.Pubkey) []byte {
	for _, s := range tx.Signatures {
		if s.Signer == signer {
			return s.Bytes
		}
	}
	return nil
}

// Verify checks that every required signer signed the current message.
func (tx *Transaction) Verify() error {
	if len(tx.Message.Instructions) == 0 {
		return ErrNoInstructions
	}
	b, err := tx.serialize()
	if err != nil {
		return err
	}
	for _, signer := range tx.Signers() {
		sig := tx.signatureOf(signer)
		if len(sig) == 0 {
			return fmt.Errorf("%w: %s", ErrSignatureMissing, signer)
		}
		if !ed25519.Verify(ed25519.PublicKey(signer.Bytes()), b, sig) {
			return fmt.Errorf("%w: %s", ErrSignatureInvalid, signer)
		}
	}
	return nil
}

// ID is the fee payer's signature in base58, or "" before it signs.
func (tx *Transaction) ID() string {
	sig := tx.signatureOf(tx.Message.FeePayer)
	if len(sig) == 0 {
		return ""
	}
	return base58.Encode(sig)
}
