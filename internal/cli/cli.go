package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avatolabs/go-olympus/internal/node"
)

var (
	rootCmd = &cobra.Command{
		Use:  "olympus",
		RunE: run,
	}
)

func Execute() error {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase verbosity")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	regCommands()

	return rootCmd.Execute()
}

// run boots a bare node without the observability api. The daemon
// subcommand is the full deployment entrypoint.
func run(cmd *cobra.Command, args []string) error {
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

	select {
	case err := <-errCh:
		return err
	case <-waitExit(ctx):
		cancel()
		return n.Stop()
	}
}

func waitExit(ctx context.Context) <-chan os.Signal {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	return sigs
}
