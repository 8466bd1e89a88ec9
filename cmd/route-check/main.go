// Command route-check exercises the routing strategies offline.
//
//	route-check verify --strategy keyword --registry ./registry.yaml
//	route-check route --strategy intent --image "what is this rash?"
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aescanero/dago-childcare-router/internal/delegate"
	"github.com/aescanero/dago-childcare-router/internal/fixtures"
	"github.com/aescanero/dago-childcare-router/internal/registry"
	"github.com/aescanero/dago-childcare-router/internal/router"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	registryPath string
	strategy     string
	verbose      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "route-check",
		Short:         "Check childcare routing decisions against a registry",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.registryPath, "registry", "", "registry YAML file (default: embedded registry)")
	cmd.PersistentFlags().StringVar(&opts.strategy, "strategy", string(router.KindKeyword), "strategy: keyword, intent or delegating")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every decision")

	cmd.AddCommand(newVerifyCmd(opts), newRouteCmd(opts))
	return cmd
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Run the regression fixtures against a strategy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			strategy, err := buildStrategy(opts)
			if err != nil {
				return err
			}

			report := fixtures.Verify(strategy)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RESULT\tTYPE\tEXPECTED\tGOT\tINPUT")
			for _, res := range report.Results {
				status := "ok"
				if !res.Passed {
					status = "FAIL"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%q\n",
					status, res.Fixture.TestType, res.Fixture.ExpectedPrimary, res.Got.AgentID, res.Fixture.Input)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			failed := len(report.Failed())
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %d passed, %d failed, %d not applicable\n",
				report.Strategy, len(report.Results)-failed, failed, report.Skipped)

			if !report.OK() {
				return fmt.Errorf("%d fixture(s) failed", failed)
			}
			return nil
		},
	}
}

func newRouteCmd(opts *rootOptions) *cobra.Command {
	var (
		hasImage    bool
		messageType string
	)

	cmd := &cobra.Command{
		Use:   "route MESSAGE",
		Short: "Print the routing decision for one message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := buildStrategy(opts)
			if err != nil {
				return err
			}

			req := router.Request{
				Message: args[0],
				Signals: router.Signals{
					HasImage:    hasImage,
					MessageType: router.MessageType(messageType),
				},
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(strategy.DetermineAgent(req))
		},
	}

	cmd.Flags().BoolVar(&hasImage, "image", false, "the request carries an image attachment")
	cmd.Flags().StringVar(&messageType, "type", string(router.MessageText), "message type: text, image or voice")
	return cmd
}

// buildStrategy loads the registry and the requested strategy. The delegating
// strategy gets a coordinator without an LLM client: deferral is reported, not resolved.
func buildStrategy(opts *rootOptions) (router.Strategy, error) {
	logger := zap.NewNop()
	if opts.verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	reg, err := registry.Load(opts.registryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	kind, err := router.ParseKind(opts.strategy)
	if err != nil {
		return nil, err
	}

	routerOpts := []router.Option{router.WithLogger(logger)}

	if kind == router.KindDelegating {
		coordinator, err := delegate.NewCoordinator(reg, nil, delegate.Config{}, logger)
		if err != nil {
			return nil, err
		}
		routerOpts = append(routerOpts, router.WithDelegate(coordinator))
	}

	return router.New(kind, reg, routerOpts...)
}
