package node

import (
	"crypto/ecdsa"
	"encoding/hex"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/avatolabs/go-olympus/internal/config"
	"github.com/avatolabs/go-olympus/pkg/cryptography"
)

// signingKey loads the node's proposer identity, creating one on first
// use. Nodes without a configured key file run as observers.
func signingKey(cfg *config.Config, l *logrus.Logger) (*ecdsa.PrivateKey, error) {
	path := cfg.Chain().KeyFile
	if path == "" {
		l.Info("no signing key configured; running as observer")
		return nil, nil
	}

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := generateSigningKey(path, l); err != nil {
			return nil, errors.Wrap(err, "creating new identity")
		}
	} else if err != nil {
		return nil, errors.Wrap(err, "checking identity file")
	} else {
		l.Debugf("using existing secp256k1 identity")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading identity file")
	}

	d, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, errors.Wrap(err, "decoding identity hex")
	}

	return cryptography.PrivateKeyFromBytes(d)
}

func generateSigningKey(path string, l *logrus.Logger) error {
	l.Debugf("creating a new secp256k1 identity")

	pk, err := cryptography.GenerateKey()
	if err != nil {
		return errors.Wrap(err, "generating priv key")
	}

	d := hex.EncodeToString(cryptography.PrivateKeyBytes(pk))

	return os.WriteFile(path, []byte(d), 0600)
}
