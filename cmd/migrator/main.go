package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ilyakaznacheev/cleanenv"
)

type MigrationCfg struct {
	ConnStr         string `env:"DATABASE_URL" env-required:"true"`
	MigrationsPath  string `env:"MIGRATIONS_PATH" env-default:"migrations"`
	MigrationsTable string `env:"MIGRATIONS_TABLE" env-default:"schema_migrations"`
}

func main() {
	var cfg MigrationCfg
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	m, err := migrate.New(
		"file://"+cfg.MigrationsPath,
		fmt.Sprintf("%s?sslmode=disable&x-migrations-table=%s", cfg.ConnStr, cfg.MigrationsTable),
	)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")
			return
		}

		log.Fatalf("failed to run migrations: %v", err)
	}

	fmt.Println("migrations applied")
}
