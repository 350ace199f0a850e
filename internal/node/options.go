package node

import (
	"github.com/sirupsen/logrus"

	"github.com/avatolabs/go-olympus/internal/storage"
)

type NodeOption func(*Node) error

func WithLogger(l *logrus.Logger) NodeOption {
	return func(n *Node) error {
		n.logger = l
		return nil
	}
}

// WithStore overrides the config-derived chain store, mostly so tests
// can run against a temp dir.
func WithStore(s *storage.Store) NodeOption {
	return func(n *Node) error {
		n.store = s
		return nil
	}
}

func WithDefaultOptions() NodeOption {
	return func(n *Node) error {
		n.logger = logrus.StandardLogger()
		return nil
	}
}
