package domain

import "errors"

// MintParams carries everything needed to create a coin on chain. Built fresh
// from the latest upload result before every mint; never mutated in place.
type MintParams struct {
	Name             string
	Symbol           string // derived from Name, see minting.DeriveSymbol
	ContentURI       string // storage URI from the upload stage
	PayoutRecipient  string // connected wallet address
	PlatformReferrer string // configured platform address
}

// Validate checks that every required field is populated.
func (p MintParams) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("mint params: empty name")
	case p.Symbol == "":
		return errors.New("mint params: empty symbol")
	case p.ContentURI == "":
		return errors.New("mint params: empty content URI")
	case p.PayoutRecipient == "":
		return errors.New("mint params: empty payout recipient")
	}
	return nil
}

// TxResult reports the outcome of a submitted mint transaction.
type TxResult struct {
	OK     bool
	TxHash string
	Reason string // wallet or node error message, verbatim, when !OK
}
