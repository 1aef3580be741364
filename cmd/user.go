package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

func init() {
	userCmd.AddCommand(userDeleteCmd)
	RootCmd.AddCommand(userCmd)
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete [username]",
	Short: "Delete a user with their posts, comments and follows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := boot()
		if err != nil {
			return err
		}
		files := utils.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
		if err := services.NewUserService(db, files).Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("deleted user %s\n", args[0])
		return nil
	},
}
