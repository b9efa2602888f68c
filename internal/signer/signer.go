package signer

// Signer signs published descriptor files
type Signer interface {
	// SignDetached creates an armored detached signature
	// (for packages.json.asc, repository.json.asc)
	SignDetached(data []byte) ([]byte, error)

	// GetPublicKey returns the public key
	GetPublicKey() ([]byte, error)
}
