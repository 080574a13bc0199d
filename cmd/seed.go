package cmd

import (
	"fmt"

	"github.com/jmehdipour/agenthub/internal/db"
	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmehdipour/agenthub/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo users, a team and library items",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		sqlDB, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		dialect, err := repository.ParseDialect(cfg.Database.Driver)
		if err != nil {
			return err
		}

		log.Info("seed_started")
		users := repository.NewUsersRepository(sqlDB, dialect)
		runner := repository.NewTxRunner(sqlDB, cfg.Commit.Attempts, cfg.Commit.Backoff)

		err = runner.Run(cmd.Context(), func(tx *sqlx.Tx) error {
			for _, u := range demoUsers {
				if err := users.UpsertByAPIKey(cmd.Context(), tx, u); err != nil {
					return fmt.Errorf("upsert user %q: %w", u.Username, err)
				}
			}
			return seedLibrary(tx)
		})
		if err != nil {
			return err
		}

		log.Info("seed_completed", zap.Int("users", len(demoUsers)))
		return nil
	},
}

// deterministic demo users (idempotent on api_key)
var demoUsers = []model.User{
	{Email: "root@example.com", Username: "root", Name: "Root", Role: model.RoleSuperAdmin, APIKey: "11111111111111111111111111111111"},
	{Email: "admin@example.com", Username: "admin", Name: "Admin", Role: model.RoleAdmin, APIKey: "22222222222222222222222222222222"},
	{Email: "manager@example.com", Username: "manager", Name: "Team Manager", Role: model.RoleManager, APIKey: "33333333333333333333333333333333"},
	{Email: "agent1@example.com", Username: "agent1", Name: "Agent One", Role: model.RoleAgent, APIKey: "44444444444444444444444444444444"},
	{Email: "agent2@example.com", Username: "agent2", Name: "Agent Two", Role: model.RoleAgent, APIKey: "55555555555555555555555555555555"},
	{Email: "former@example.com", Username: "former", Name: "Former Agent", Role: model.RoleAgent, APIKey: "66666666666666666666666666666666", Disabled: true},
}

// seedLibrary puts the manager and both agents on team 1 and adds a few
// library items. Both statements only insert what is missing.
func seedLibrary(tx *sqlx.Tx) error {
	const members = `
INSERT INTO team_member (team_id, user_id)
SELECT 1, u.id
  FROM users u
 WHERE u.username IN ('manager', 'agent1', 'agent2')
   AND NOT EXISTS (SELECT 1 FROM team_member m WHERE m.team_id = 1 AND m.user_id = u.id)
`
	if _, err := tx.Exec(members); err != nil {
		return fmt.Errorf("seed team: %w", err)
	}

	const item = `
INSERT INTO library_item (title, bias_weight, archived)
SELECT ?, ?, ? FROM (SELECT 1) AS seed
 WHERE NOT EXISTS (SELECT 1 FROM library_item WHERE title = ?)
`
	for _, it := range []struct {
		title    string
		bias     float64
		archived bool
	}{
		{"Onboarding basics", 1.0, false},
		{"Handling objections", 0.5, false},
		{"Product deep dive", 0, false},
		{"Legacy pricing (2019)", 0, true},
	} {
		if _, err := tx.Exec(item, it.title, it.bias, it.archived, it.title); err != nil {
			return fmt.Errorf("seed item %q: %w", it.title, err)
		}
	}
	return nil
}
