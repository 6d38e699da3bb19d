// Package crypto provides the secp256k1 signing and recovery used by the
// wallet-signed operation flow: callers sign the canonical payload string of
// an operation, and the API recovers the signer address and matches it
// against the claimed caller.
package crypto

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer wraps a secp256k1 key pair with its derived address.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// GenerateKey creates a random key pair.
func GenerateKey() (*Signer, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// FromPrivateKeyHex parses a hex private key ("0x..." or bare, 64 chars).
func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	if len(hexKey) >= 2 && hexKey[:2] == "0x" {
		hexKey = hexKey[2:]
	}
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

func (s *Signer) Address() common.Address { return s.address }

// SignPayload hashes the canonical payload bytes with Keccak256 and signs the
// digest. The returned signature is 65 bytes, [R || S || V].
func (s *Signer) SignPayload(payload []byte) ([]byte, error) {
	hash := crypto.Keccak256Hash(payload)
	sig, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign payload: %w", err)
	}
	return sig, nil
}

// RecoverSigner returns the address that signed the payload.
func RecoverSigner(payload, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(signature))
	}
	hash := crypto.Keccak256Hash(payload)
	pubBytes, err := crypto.Ecrecover(hash.Bytes(), signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	pub, err := crypto.UnmarshalPubkey(pubBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("unmarshal public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPayload reports whether signature over payload was made by address.
func VerifyPayload(address common.Address, payload, signature []byte) bool {
	recovered, err := RecoverSigner(payload, signature)
	if err != nil {
		return false
	}
	return recovered == address
}
