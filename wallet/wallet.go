package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Wallet holds the local peer identity. The public key doubles as the
// peer's marketplace address: 64 lowercase hex characters.
type Wallet struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// FromSeed restores a wallet from a 32-byte hex seed.
func FromSeed(seedHex string) (*Wallet, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("invalid key seed: %v", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid key seed length %d", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Wallet{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// New generates a fresh random wallet.
func New() (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: pub}, nil
}

func (w *Wallet) Address() string {
	return hex.EncodeToString(w.pub)
}

// Sign returns the hex detached signature over the message bytes.
func (w *Wallet) Sign(message []byte) string {
	return hex.EncodeToString(ed25519.Sign(w.priv, message))
}

// Nonce returns a fresh random hex nonce for signing payloads.
func Nonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Verify checks a hex signature over message against the address, which is
// the hex encoding of the signer's public key.
func Verify(signatureHex string, message []byte, address string) bool {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	pub, err := hex.DecodeString(address)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}

// IsHexAddress reports whether s has the shape of a marketplace address.
func IsHexAddress(s string) bool {
	if len(s) < 64 || len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
