package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

const (
	envBaseURL = "LOCATIONS_GATEWAY_URL"
	envToken   = "LOCATIONS_TOKEN"
)

type rootOptions struct {
	baseURL string
	token   string
	timeout time.Duration
}

func (o *rootOptions) client() *gatewayClient {
	return newGatewayClient(o.baseURL, o.token, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "locationsctl",
		Short:         "Operate the locations hierarchy through locations-gateway",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	baseURL := os.Getenv(envBaseURL)
	if baseURL == "" {
		baseURL = "http://localhost:50090"
	}

	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", baseURL, "gateway base URL (env "+envBaseURL+")")
	cmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv(envToken), "admin bearer token (env "+envToken+")")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout")

	cmd.AddCommand(
		newImportCmd(opts),
		newSearchCmd(opts),
		newTreeCmd(opts),
	)

	return cmd
}
