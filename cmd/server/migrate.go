package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/yukikurage/umsebenzi/internal/config"
	"github.com/yukikurage/umsebenzi/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and indexes, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := database.MigrateDatabase(db); err != nil {
				return err
			}

			log.Println("Migrations applied")
			return nil
		},
	}
}
