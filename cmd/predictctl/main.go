// Command predictctl talks to running predictors over NATS: request a
// prediction, check health, or follow the prediction event stream.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aigoflow/kubescale-predictor/pkg/client"
)

var (
	natsURL        string
	predictSubject string
	eventSubject   string
	timeout        time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "predictctl",
		Short:        "Query KubeScale predictors over NATS",
		SilenceUsage: true,
	}

	defaultURL := os.Getenv("NATS_URL")
	if defaultURL == "" {
		defaultURL = "nats://127.0.0.1:4222"
	}

	root.PersistentFlags().StringVar(&natsURL, "nats-url", defaultURL, "NATS server URL")
	root.PersistentFlags().StringVar(&predictSubject, "predict-subject", client.DefaultPredictSubject, "Subject predictors listen on")
	root.PersistentFlags().StringVar(&eventSubject, "event-subject", client.DefaultEventSubject, "Prefix for prediction events")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Request timeout")

	root.AddCommand(newPredictCmd(), newHealthCmd(), newWatchCmd())
	return root
}

func connect() (*client.NATSPredictorClient, error) {
	return client.NewNATSClient(client.Config{
		URL:            natsURL,
		PredictSubject: predictSubject,
		EventSubject:   eventSubject,
		Timeout:        timeout,
	})
}

func newPredictCmd() *cobra.Command {
	var url, deployment string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Request a user-count prediction for a URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect()
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.Predict(cmd.Context(), url, deployment)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "URL to analyze")
	cmd.Flags().StringVar(&deployment, "deployment", "", "Deployment label (server default when empty)")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show which collaborators a predictor has",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect()
			if err != nil {
				return err
			}
			defer c.Close()

			status, err := c.CheckHealth(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, status)
		},
	}
}

func newWatchCmd() *cobra.Command {
	var deployment string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream prediction events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s %-8s %-20s %8s %6s  %s\n", "TIME", "SOURCE", "DEPLOYMENT", "USERS", "CONF", "URL")
			return c.Watch(ctx, deployment, func(e *client.PredictionEvent) {
				if e.Result == nil {
					return
				}
				ts := time.Unix(0, int64(e.Result.Timestamp*1e9)).Format("2006-01-02 15:04:05")
				fmt.Fprintf(out, "%-20s %-8s %-20s %8d %6.2f  %s\n",
					ts, e.Source, e.Result.Deployment, e.Result.PredictedUsers, e.Result.Confidence, e.Result.URL)
			})
		},
	}
	cmd.Flags().StringVar(&deployment, "deployment", "", "Only show this deployment")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
