package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cppla/yatube/services"
)

var groupDescription string

func init() {
	groupCreateCmd.Flags().StringVarP(&groupDescription, "description", "d", "", "Group description")
	groupCmd.AddCommand(groupCreateCmd, groupDeleteCmd)
	RootCmd.AddCommand(groupCmd)
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create [slug] [title]",
	Short: "Create a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := boot()
		if err != nil {
			return err
		}
		group, err := services.NewGroupService(db).Create(cmd.Context(), args[1], args[0], groupDescription)
		if err != nil {
			return err
		}
		cmd.Printf("created group %s (id %d)\n", group.Slug, group.ID)
		return nil
	},
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete [slug]",
	Short: "Delete a group; its posts stay without a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := boot()
		if err != nil {
			return err
		}
		if err := services.NewGroupService(db).Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("deleted group %s\n", args[0])
		return nil
	},
}
