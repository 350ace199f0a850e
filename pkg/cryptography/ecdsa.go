package cryptography

import (
	"crypto/ecdsa"
	"crypto/rand"

	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const (
	// SignatureLength is the compact [R || S || V] recoverable form.
	SignatureLength = 65

	HashLength    = 32
	AddressLength = 20
)

var (
	ErrMalformedSignature = errors.New("malformed signature")
	ErrMalformedKey       = errors.New("malformed key")
)

func GenerateKey() (*ecdsa.PrivateKey, error) {
	pk, err := ecdsa.GenerateKey(ethCrypto.S256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generating ecdsa key")
	}

	return pk, nil
}

func PrivateKeyFromBytes(d []byte) (*ecdsa.PrivateKey, error) {
	pk, err := ethCrypto.ToECDSA(d)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedKey, err.Error())
	}

	return pk, nil
}

func PrivateKeyBytes(pk *ecdsa.PrivateKey) []byte {
	return ethCrypto.FromECDSA(pk)
}

// PubkeyToAddress derives the account address as the low 20 bytes of the
// keccak digest of the uncompressed public key.
func PubkeyToAddress(pub *ecdsa.PublicKey) [AddressLength]byte {
	return ethCrypto.PubkeyToAddress(*pub)
}

func Keccak256(data ...[]byte) [HashLength]byte {
	var h [HashLength]byte
	copy(h[:], ethCrypto.Keccak256(data...))
	return h
}

// Sign produces a recoverable signature over a 32-byte digest.
func Sign(digest [HashLength]byte, pk *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := ethCrypto.Sign(digest[:], pk)
	if err != nil {
		return nil, errors.Wrap(err, "signing digest")
	}

	return sig, nil
}

// Recover returns the address of the key that produced sig over digest.
func Recover(digest [HashLength]byte, sig []byte) ([AddressLength]byte, error) {
	var addr [AddressLength]byte

	if len(sig) != SignatureLength {
		return addr, errors.Wrapf(ErrMalformedSignature, "length %d", len(sig))
	}

	pub, err := ethCrypto.SigToPub(digest[:], sig)
	if err != nil {
		return addr, errors.Wrap(ErrMalformedSignature, err.Error())
	}

	return ethCrypto.PubkeyToAddress(*pub), nil
}

// Verify checks sig over digest against an uncompressed public key. A
// malformed key or signature is reported as an error; a well formed
// signature by a different key returns false with no error.
func Verify(pubkey []byte, digest [HashLength]byte, sig []byte) (bool, error) {
	if _, err := ethCrypto.UnmarshalPubkey(pubkey); err != nil {
		return false, errors.Wrap(ErrMalformedKey, err.Error())
	}

	switch len(sig) {
	case SignatureLength:
		return ethCrypto.VerifySignature(pubkey, digest[:], sig[:SignatureLength-1]), nil
	case SignatureLength - 1:
		return ethCrypto.VerifySignature(pubkey, digest[:], sig), nil
	default:
		return false, errors.Wrapf(ErrMalformedSignature, "length %d", len(sig))
	}
}

// VerifyAddress checks that sig over digest recovers to addr.
func VerifyAddress(addr [AddressLength]byte, digest [HashLength]byte, sig []byte) (bool, error) {
	rec, err := Recover(digest, sig)
	if err != nil {
		return false, err
	}

	return rec == addr, nil
}
