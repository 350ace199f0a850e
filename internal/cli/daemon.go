package cli

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avatolabs/go-olympus/internal/api"
	"github.com/avatolabs/go-olympus/internal/node"
	"github.com/avatolabs/go-olympus/internal/utils/logging"
)

var (
	daemonCmd = &cobra.Command{
		Use:   "daemon",
		RunE:  runDaemon,
		Short: "run the daemon",
	}
)

func init() {
	daemonCmd.Flags().IntP("api-port", "p", 8080, "api port")
	viper.BindPFlag("api_port", daemonCmd.Flags().Lookup("api-port"))
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n, err := node.NewNode(ctx, node.WithDefaultOptions())
	if err != nil {
		return errors.Wrap(err, "initing node")
	}

	errCh := make(chan error)

	go func() {
		if err := n.ListenAndServe(ctx); err != nil {
			errCh <- err
		}
	}()

	a, err := api.NewAPI(n)
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	go func() {
		logging.Entry().WithField("port", viper.GetInt("api_port")).Info("starting observability api")
		if err := a.ListenAndServe(&net.TCPAddr{Port: viper.GetInt("api_port")}); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-waitExit(ctx):
		cancel()
		return n.Stop()
	}
}
