package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Create or upgrade the database schema.

Every command that opens the database migrates it first; this command only
does that and exits, which is useful before starting several servers
against one postgres database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrateRun()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func migrateRun() error {
	driver := viper.GetString("db.driver")
	if dryRun {
		ui.DryRunMsg("Would migrate the %s database", driver)
		return nil
	}
	if _, err := getStore(); err != nil {
		return err
	}
	ui.Success("Database schema is up to date (%s)", driver)
	return nil
}
