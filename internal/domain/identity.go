package domain

// Profile is a user's public display identity keyed by wallet address.
// A zero Profile with Exists=false is the sentinel for "no profile resolvable";
// resolvers return it instead of an error.
type Profile struct {
	Handle    string // "@"-prefixed when present
	AvatarURL string
	Exists    bool
}

// Account is the backend-side user record keyed by wallet address. Lookup
// failures and unknown wallets both resolve to the empty sentinel below.
type Account struct {
	ID                       string
	WalletAddress            string
	AutoMintEnabled          bool
	SentimentAnalysisEnabled bool
	BasePrompt               string
	Exists                   bool
}

// EmptyProfile is the sentinel returned when no profile can be resolved.
func EmptyProfile() Profile { return Profile{} }

// EmptyAccount is the sentinel returned when no account can be resolved.
func EmptyAccount(addr string) Account { return Account{WalletAddress: addr} }
