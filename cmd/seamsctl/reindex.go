package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seams/internal/datastore"
	"seams/internal/model"
	"seams/internal/repository/sqlite"
	"seams/internal/service"
	"seams/internal/service/storage"
	"seams/internal/service/websocket"
	"seams/internal/session"
)

func reindexCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex SURVEY",
		Short: "Rebuild the observation index of a survey from its annotations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := e.manager()
			if err != nil {
				return err
			}
			n, err := manager.Reindex(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d observation(s) of %s\n", n, args[0])
			return nil
		},
	}
}

// manager builds a service manager without media collaborators, for the
// operations that only touch the survey file and the database.
func (e *env) manager() (*service.Manager, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	log, err := e.logger()
	if err != nil {
		return nil, err
	}
	db, err := e.database()
	if err != nil {
		return nil, err
	}
	return service.NewManager(service.Deps{
		Config:       cfg,
		Logger:       log,
		Surveys:      datastore.NewYAMLStore[model.SurveyBook](cfg.SurveyFile),
		Sessions:     session.NewManager(cfg.SessionTTL(), cfg.GridOptions()),
		Users:        sqlite.NewUserRepository(db),
		Tables:       sqlite.NewTableAdmin(db),
		Observations: sqlite.NewObservationRepository(db),
		Media:        storage.NewMediaStore(cfg.DataDirectory, cfg.Thumbnail.Width, log),
		Hub:          websocket.NewHubService(log),
	}), nil
}
