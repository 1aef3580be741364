package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cppla/yatube/utils"
)

func init() {
	RootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := boot()
		if err != nil {
			return err
		}
		utils.Sugar.Infow("schema migrated", "driver", cfg.DBDriver)
		cmd.Println("schema up to date")
		return nil
	},
}
