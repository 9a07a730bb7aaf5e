package servercli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakedis/fakedis/config"
	"github.com/fakedis/fakedis/database"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start fakedis, same as running without a sub command",
	Args:  cobra.NoArgs,
	RunE:  rootCmd.RunE,
}

var createCmd = &cobra.Command{
	Use:   "create [config filepath]",
	Short: "Start fakedis from the configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		props, err := loadProperties(cmd, args[0])
		if err != nil {
			return err
		}
		return StartServer(cmd.Context(), props)
	},
}

var portCmd = &cobra.Command{
	Use:   "port [port]",
	Short: "Start fakedis with the given port",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}
		props, err := loadProperties(cmd, flags.config)
		if err != nil {
			return err
		}
		props.Port = port
		return StartServer(cmd.Context(), props)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the emulated redis version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		props, err := loadProperties(cmd, flags.config)
		if err != nil {
			return err
		}
		version := database.DefaultVersion
		if props.Version != "" {
			if version, err = config.ParseVersion(props.Version); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "redis_version:%d.%d.%d\n", version[0], version[1], version[2])
		return err
	},
}

func parsePort(s string) (int, error) {
	var n int
	if _, err := fmt.Sscan(s, &n); err != nil {
		return 0, fmt.Errorf("illegal port %q", s)
	}
	return n, validPort(n)
}

func validPort(n int) error {
	if n < 1 || n > 65535 {
		return fmt.Errorf("listening port %d is out of range [1, 65535]", n)
	}
	return nil
}

func init() {
	AddCommand(serveCmd)
	AddCommand(createCmd)
	AddCommand(portCmd)
	AddCommand(versionCmd)
}
