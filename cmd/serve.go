package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cppla/yatube/routes"
	"github.com/cppla/yatube/utils"
)

func init() {
	RootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server until SIGINT or SIGTERM",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := boot()
		if err != nil {
			return err
		}
		defer utils.Logger.Sync()

		files := utils.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
		r, err := routes.SetupRouter(db, utils.NewPageCache(cfg), files)
		if err != nil {
			return err
		}

		utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
		return utils.GraceServer(":"+cfg.AppPort, r)
	},
}
