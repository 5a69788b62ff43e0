package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file and command-line
flags are applied, preceded by the config file location.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			return configWithOutput(s, cmd.OutOrStdout())
		},
	}

	return cmd
}

func configWithOutput(s *session, out io.Writer) error {
	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	fmt.Fprintf(out, "# %s\n", s.configPath)
	fmt.Fprint(out, string(data))
	return nil
}
