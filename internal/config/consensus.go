package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/avatolabs/go-olympus/pkg/consensus"
)

type Consensus struct {
	ChainID          uint64
	MinWitnesses     int
	MaxWitnesses     int
	StallRounds      int
	BlockGasLimit    uint64
	ProposeInterval  time.Duration
	ClockDrift       time.Duration
	AllowEmpty       bool
	MaxPendingBlocks int
	MempoolSize      int
}

const (
	Cfg_consensus_chainId          = "consensus.chainId"
	Cfg_consensus_minWitnesses     = "consensus.minWitnesses"
	Cfg_consensus_maxWitnesses     = "consensus.maxWitnesses"
	Cfg_consensus_stallRounds      = "consensus.stallRounds"
	Cfg_consensus_blockGasLimit    = "consensus.blockGasLimit"
	Cfg_consensus_proposeInterval  = "consensus.proposeInterval"
	Cfg_consensus_clockDrift       = "consensus.clockDrift"
	Cfg_consensus_allowEmpty       = "consensus.allowEmptyProposals"
	Cfg_consensus_maxPendingBlocks = "consensus.maxPendingBlocks"
	Cfg_consensus_mempoolSize      = "consensus.mempoolSize"
)

var (
	consensusDefaults = map[string]interface{}{
		Cfg_consensus_chainId:          consensus.DefaultChainID,
		Cfg_consensus_minWitnesses:     consensus.DefaultMinWitnesses,
		Cfg_consensus_maxWitnesses:     consensus.DefaultMaxWitnesses,
		Cfg_consensus_stallRounds:      consensus.DefaultStallRounds,
		Cfg_consensus_blockGasLimit:    consensus.DefaultBlockGasLimit,
		Cfg_consensus_proposeInterval:  consensus.DefaultProposeInterval,
		Cfg_consensus_clockDrift:       consensus.DefaultClockDrift,
		Cfg_consensus_allowEmpty:       false,
		Cfg_consensus_maxPendingBlocks: consensus.DefaultMaxPending,
		Cfg_consensus_mempoolSize:      4096,
	}
)

func init() {
	for k, v := range consensusDefaults {
		viper.SetDefault(k, v)
	}
}

func buildConsensusConfig() (*Consensus, error) {
	c := &Consensus{
		ChainID:          viper.GetUint64(Cfg_consensus_chainId),
		MinWitnesses:     viper.GetInt(Cfg_consensus_minWitnesses),
		MaxWitnesses:     viper.GetInt(Cfg_consensus_maxWitnesses),
		StallRounds:      viper.GetInt(Cfg_consensus_stallRounds),
		BlockGasLimit:    viper.GetUint64(Cfg_consensus_blockGasLimit),
		ProposeInterval:  viper.GetDuration(Cfg_consensus_proposeInterval),
		ClockDrift:       viper.GetDuration(Cfg_consensus_clockDrift),
		AllowEmpty:       viper.GetBool(Cfg_consensus_allowEmpty),
		MaxPendingBlocks: viper.GetInt(Cfg_consensus_maxPendingBlocks),
		MempoolSize:      viper.GetInt(Cfg_consensus_mempoolSize),
	}

	return c, nil
}
