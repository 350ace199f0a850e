package cryptography

import (
	"testing"

	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignRecover(t *testing.T) {
	pk, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	digest := Keccak256([]byte("olympus"))

	sig, err := Sign(digest, pk)
	require.NoError(t, err)
	assert.Len(t, sig, SignatureLength)

	addr, err := Recover(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, PubkeyToAddress(&pk.PublicKey), addr)
}

func TestVerifyAddress(t *testing.T) {
	pk, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	digest := Keccak256([]byte("olympus"))
	sig, err := Sign(digest, pk)
	require.NoError(t, err)

	ok, err := VerifyAddress(PubkeyToAddress(&pk.PublicKey), digest, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	other, err := GenerateKey()
	require.NoError(t, err)

	// wrong signer is a clean false, not an error
	ok, err = VerifyAddress(PubkeyToAddress(&other.PublicKey), digest, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify(t *testing.T) {
	pk, err := GenerateKey()
	require.NoError(t, err)

	digest := Keccak256([]byte("payload"))
	sig, err := Sign(digest, pk)
	require.NoError(t, err)

	pub := ethCrypto.FromECDSAPub(&pk.PublicKey)

	ok, err := Verify(pub, digest, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(pub, digest, sig[:SignatureLength-1])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(pub, Keccak256([]byte("other")), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMalformedInputs(t *testing.T) {
	pk, err := GenerateKey()
	require.NoError(t, err)

	digest := Keccak256([]byte("payload"))
	sig, err := Sign(digest, pk)
	require.NoError(t, err)

	_, err = Recover(digest, sig[:10])
	assert.ErrorIs(t, err, ErrMalformedSignature)

	_, err = Verify([]byte{0x02, 0x01}, digest, sig)
	assert.ErrorIs(t, err, ErrMalformedKey)

	_, err = Verify(ethCrypto.FromECDSAPub(&pk.PublicKey), digest, []byte{0x1})
	assert.ErrorIs(t, err, ErrMalformedSignature)
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	pk, err := GenerateKey()
	require.NoError(t, err)

	restored, err := PrivateKeyFromBytes(PrivateKeyBytes(pk))
	require.NoError(t, err)
	assert.Equal(t, pk.D, restored.D)

	_, err = PrivateKeyFromBytes([]byte{0x0})
	assert.ErrorIs(t, err, ErrMalformedKey)
}
