package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go1090/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	config := app.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "go1090",
		Short: "ADS-B Decoder (dump1090-style)",
		Long: `ADS-B Decoder using RTL-SDR (dump1090-style implementation).

Captures I/Q samples from RTL-SDR at 2.4MHz (or replays a file/stdin
capture), demodulates ADS-B messages using dump1090's correlation-based
approach with phase tracking and scoring, validates and corrects CRC,
and serves the result as raw hex, BaseStation/SBS, and JSON over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}
			if err := config.Validate(); err != nil {
				return configError{err}
			}

			application := app.NewApplication(config)
			if err := application.Start(); err != nil {
				return ioError{err}
			}
			return nil
		},
	}

	app.RegisterFlags(rootCmd, &config)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		switch err.(type) {
		case ioError:
			return 2
		default:
			// cobra's own usage/parsing errors fall into the same
			// configuration/usage category as configError.
			return 1
		}
	}
	return 0
}

// configError marks a configuration/usage failure, exit code 1.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

// ioError marks an SDR or file I/O failure, exit code 2.
type ioError struct{ err error }

func (e ioError) Error() string { return e.err.Error() }
func (e ioError) Unwrap() error { return e.err }
