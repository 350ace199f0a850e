package consensus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	finalizedRound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "olympus_finalized_round",
			Help: "The highest finalized round number.",
		},
	)
	finalizedTxCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "olympus_finalized_tx_total",
			Help: "The number of transactions finalized into slices.",
		},
	)
	blockCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "olympus_dag_block_count",
			Help: "The number of blocks in the DAG.",
		},
	)
	mempoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "olympus_mempool_size",
			Help: "The number of transactions waiting in the mempool.",
		},
	)
	pendingBlocks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "olympus_pending_blocks",
			Help: "The number of blocks parked waiting for missing parents.",
		},
	)
	proposalCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "olympus_proposals_total",
			Help: "The number of blocks proposed by this node.",
		},
	)
	supersededCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "olympus_proposals_superseded_total",
			Help: "The number of proposals abandoned because the frontier moved.",
		},
	)
	stallCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "olympus_stall_events_total",
			Help: "The number of times a round entered the stalled state.",
		},
	)
	rejectedTxCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "olympus_rejected_tx_total",
			Help: "The number of transactions rejected at admission.",
		},
	)
)
