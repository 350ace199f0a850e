package config

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/avatolabs/go-olympus/internal/utils/logging"
)

var (
	defaults = map[string]interface{}{
		"verbose": false,
	}
)

func init() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

func GetConfig() (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigName("olympus")
	viper.AddConfigPath("/etc/olympus/")
	viper.AddConfigPath("$HOME/.olympus")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("OLYMPUS")
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error
			logrus.New().Warnf("no config found")
		} else {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	c := &Config{}

	c.chain, err = buildChainConfig()
	if err != nil {
		return nil, errors.Wrap(err, "chain config")
	}

	c.consensus, err = buildConsensusConfig()
	if err != nil {
		return nil, errors.Wrap(err, "consensus config")
	}

	if viper.GetBool("verbose") {
		logging.SetLevel(logrus.DebugLevel)
		logging.Entry().WithField("level", "debug").Debug("setting log level")
	}

	return c, nil
}

type Config struct {
	chain     *Chain
	consensus *Consensus
}

func (c *Config) Chain() *Chain {
	return c.chain
}

func (c *Config) Consensus() *Consensus {
	return c.consensus
}
