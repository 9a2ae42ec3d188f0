// Command createsuperuser adds an active staff superuser to the PostgreSQL store.
//
//	createsuperuser -email admin@example.com -first-name Ada -last-name Admin
//
// The password is read from -password or, when empty, SUPERUSER_PASSWORD.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"ledger_backend/internal/config"
	"ledger_backend/internal/database"
	"ledger_backend/internal/models"
	"ledger_backend/internal/repositories"
	"ledger_backend/internal/services"
	"ledger_backend/pkg/utils"
)

func main() {
	email := flag.String("email", "", "email address of the new superuser")
	firstName := flag.String("first-name", "", "first name")
	lastName := flag.String("last-name", "", "last name")
	password := flag.String("password", "", "password (defaults to $SUPERUSER_PASSWORD)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		utils.InitLogger("info", true)
		utils.LogError(err, "Invalid configuration")
		os.Exit(1)
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogPretty)

	if *password == "" {
		*password = os.Getenv("SUPERUSER_PASSWORD")
	}

	if err := run(cfg, models.RegistrationPayload{
		Email:     *email,
		FirstName: *firstName,
		LastName:  *lastName,
		Password:  *password,
	}); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr.Fields {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
			}
			flag.Usage()
			os.Exit(2)
		}
		utils.LogError(err, "Failed to create superuser")
		os.Exit(1)
	}
}

func run(cfg *config.Config, payload models.RegistrationPayload) error {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("createsuperuser needs STORE_DRIVER=%s, got %q", config.StoreDriverPostgres, cfg.StoreDriver)
	}

	cmd, err := services.NewUserCommand(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.PostgresDSN(), database.Options{MaxOpenConns: 1})
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBApplySchema {
		if err := database.ApplySchema(ctx, db); err != nil {
			return err
		}
	}

	// Superuser creation never issues tokens.
	auth := services.NewAuthService(repositories.NewUserRepository(db), nil)
	user, err := auth.CreateSuperuser(ctx, cmd)
	if err != nil {
		return err
	}
	utils.LogInfo("Superuser created", map[string]interface{}{"id": user.ID, "email": user.Email})
	return nil
}
