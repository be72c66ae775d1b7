package identity

// Identity mirrors a registry record for one blockchain account.
type Identity struct {
	Address     string `json:"address"`
	Hash        string `json:"hash"`
	MetadataURI string `json:"metadata_uri"`
	Verified    bool   `json:"verified"`
	Timestamp   int64  `json:"timestamp"`
	Expiration  int64  `json:"expiration"`
	ProviderID  string `json:"provider_id"`
}

// Provider mirrors a registry record for an accredited identity provider.
type Provider struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PublicKey      string `json:"public_key"`
	Active         bool   `json:"is_active"`
	AddedTimestamp int64  `json:"added_timestamp"`
}

// Registry is the read surface of the on-chain identity registry. The
// contract itself, its ABI and transaction submission live outside this
// system; implementations wrap whatever chain client the deployment uses.
type Registry interface {
	GetIdentity(address string) (*Identity, error)
	VerifyIdentity(address string) (bool, error)
	GetProvider(id string) (*Provider, error)
}
