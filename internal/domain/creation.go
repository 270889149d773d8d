package domain

import "time"

// CreationRecord is one completed coin creation as persisted in the ledger.
// Written exactly once, when a session reaches the complete phase.
type CreationRecord struct {
	SessionID     string
	WalletAddress string
	CoinName      string
	CoinSymbol    string
	ContentURI    string
	TxHash        string
	SourceCoinIDs []string // IDs of the coins selected as references, display order
	Prompt        string
	CreatedAt     time.Time
}
