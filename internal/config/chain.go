package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/avatolabs/go-olympus/pkg/genesis"
)

type Chain struct {
	DataDir string
	KeyFile string
	Genesis *genesis.Spec
}

const (
	Cfg_chain_dataDir     = "chain.dataDir"
	Cfg_chain_keyFile     = "chain.keyFile"
	Cfg_chain_genesisFile = "chain.genesisFile"
)

var (
	chainDefaults = map[string]interface{}{
		Cfg_chain_dataDir:     "./data",
		Cfg_chain_keyFile:     "",
		Cfg_chain_genesisFile: "",
	}
)

func init() {
	for k, v := range chainDefaults {
		viper.SetDefault(k, v)
	}
}

func buildChainConfig() (*Chain, error) {
	c := &Chain{
		DataDir: viper.GetString(Cfg_chain_dataDir),
		KeyFile: viper.GetString(Cfg_chain_keyFile),
	}

	if path := viper.GetString(Cfg_chain_genesisFile); path != "" {
		spec, err := genesis.LoadSpec(path)
		if err != nil {
			return nil, errors.Wrap(err, "loading genesis spec")
		}

		c.Genesis = spec
	}

	return c, nil
}
