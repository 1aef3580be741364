package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var configPath string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:           "yatube [command] [flags]",
	Short:         "Yatube: a small blogging platform",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (toml or json), defaults to config/config.toml")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// boot loads configuration, starts logging and opens the migrated database.
func boot() (config.AppConfig, *gorm.DB, error) {
	cfg := config.LoadFile(configPath)
	if err := utils.InitLogger(cfg); err != nil {
		return cfg, nil, err
	}
	db, err := config.InitDatabase(models.All()...)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}
