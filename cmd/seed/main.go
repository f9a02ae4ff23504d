// Command seed creates the default accounts, one per role.  Existing
// usernames are left untouched, so the command is safe to re-run.
package main

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/nixflow/repair-tracker/internal/config"
	"github.com/nixflow/repair-tracker/internal/database"
	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/repository"
)

var defaultAccounts = []struct {
	Username string
	Password string
	Role     model.Role
}{
	{"admin", "Admin@123", model.RoleAdmin},
	{"tech", "Tech@123", model.RoleTech},
	{"user", "User@123", model.RoleUser},
	{"viewer", "Viewer@123", model.RoleViewer},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, acc := range defaultAccounts {
		id, err := users.Create(ctx, acc.Username, acc.Password, acc.Role, cfg.BcryptCost)
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			logrus.WithField("username", acc.Username).Info("already exists, skipping")
		case err != nil:
			logrus.WithError(err).WithField("username", acc.Username).Fatal("seed failed")
		default:
			logrus.WithFields(logrus.Fields{"username": acc.Username, "id": id, "role": acc.Role}).Info("created")
		}
	}
}
