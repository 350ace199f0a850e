package api

import (
	"context"
	"net"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avatolabs/go-olympus/internal/node"
	"github.com/avatolabs/go-olympus/internal/utils/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Api is the node's local observability surface: prometheus metrics,
// a liveness probe and a chain status snapshot. It is not an RPC
// interface; nothing on it mutates the chain.
type Api struct {
	n      *node.Node
	server *http.Server
}

func NewAPI(n *node.Node) (*Api, error) {
	a := &Api{n: n}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", a.healthzHandler)
	mux.HandleFunc("/status", a.statusHandler)

	a.server = &http.Server{Handler: mux}

	return a, nil
}

func (a *Api) ListenAndServe(l net.Addr) error {
	lis, err := net.Listen("tcp", l.String())
	if err != nil {
		return err
	}

	return a.server.Serve(lis)
}

func (a *Api) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

type chainStatus struct {
	ChainID        uint64 `json:"chainId"`
	Author         string `json:"author,omitempty"`
	FinalizedRound uint64 `json:"finalizedRound"`
	TargetState    string `json:"targetState"`
	Blocks         int    `json:"blocks"`
	PoolSize       int    `json:"poolSize"`
}

func (a *Api) statusHandler(w http.ResponseWriter, _ *http.Request) {
	eng := a.n.Engine()
	height := eng.FinalizedHeight()

	st := chainStatus{
		ChainID:        a.n.Config().Consensus().ChainID,
		FinalizedRound: height,
		TargetState:    eng.State(height + 1).String(),
		Blocks:         a.n.DAG().Len(),
		PoolSize:       a.n.Pool().Len(),
	}
	if author := eng.Author(); !author.IsZero() {
		st.Author = author.Hex()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		logging.WithError(err).Error("writing status")
	}
}

func (a *Api) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("ok")); err != nil {
		logging.WithError(err).Error("writing healthz")
	}
}
