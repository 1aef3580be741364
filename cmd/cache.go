package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/utils"
)

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	RootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the page cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached page (only effective for the redis cache)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadFile(configPath)
		if err := utils.InitLogger(cfg); err != nil {
			return err
		}
		if err := utils.NewPageCache(cfg).Clear(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("page cache cleared")
		return nil
	},
}
