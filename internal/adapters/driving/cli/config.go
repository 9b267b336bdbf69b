package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/driveroute/internal/adapters/driven/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath
		}
		if err := config.WriteDefault(path, configInitForce); err != nil {
			return err
		}
		cmd.Printf("Wrote %s\n", path)
		cmd.Println("Set drive.parent_folder_id, drive.watch_folder_id and server.public_url before running 'driveroute serve'.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		if cfg.Path() != "" {
			cmd.Printf("# %s\n", cfg.Path())
		}
		cmd.Print(string(data))
		if err := cfg.Validate(); err != nil {
			cmd.Printf("\n# %v\n", err)
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
