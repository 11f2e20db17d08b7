// Command migrate applies the embedded schema migrations.
//
//	migrate up | down [steps] | version | force <version> | goto <version>
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/config"
	"esports_v1/ingestion/internal/logging"
	"esports_v1/ingestion/internal/repository"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cfg := config.MustLoadStoreOnly()
	logging.Setup(cfg.AppEnv, cfg.LogLevel)

	m, err := repository.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}
	defer closeMigrator(m)

	switch cmd := strings.ToLower(strings.TrimSpace(os.Args[1])); cmd {
	case "up":
		handleMigrationErr(m.Up())
		log.Info().Msg("Migrations applied")
	case "down":
		steps, err := parseSteps(os.Args[2:])
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid arguments")
		}
		handleMigrationErr(m.Steps(-steps))
		log.Info().Int("steps", steps).Msg("Migrations rolled back")
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("version: none")
			fmt.Println("dirty: false")
			return
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read version")
		}
		fmt.Printf("version: %d\n", version)
		fmt.Printf("dirty: %t\n", dirty)
	case "force":
		if len(os.Args) < 3 {
			log.Fatal().Msg("force requires a version argument")
		}
		version, err := parseVersion(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid arguments")
		}
		if err := m.Force(version); err != nil {
			log.Fatal().Err(err).Int("version", version).Msg("Failed to force version")
		}
		log.Info().Int("version", version).Msg("Version forced")
	case "goto":
		if len(os.Args) < 3 {
			log.Fatal().Msg("goto requires a target version argument")
		}
		target, err := parseTarget(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid arguments")
		}
		handleMigrationErr(m.Migrate(target))
		log.Info().Uint("version", target).Msg("Migrated")
	default:
		printUsage()
		os.Exit(2)
	}
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}

	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid down steps %q", args[0])
	}
	if steps <= 0 {
		return 0, errors.New("down steps must be > 0")
	}

	return steps, nil
}

func parseVersion(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid version %q", raw)
	}
	if value < 0 {
		return 0, errors.New("version must be >= 0")
	}
	return value, nil
}

func parseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid target version %q", raw)
	}
	return uint(value), nil
}

func handleMigrationErr(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("No migration changes")
		return
	}
	log.Fatal().Err(err).Msg("Migration failed")
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		log.Warn().Err(srcErr).Msg("Failed to close migration source")
	}
	if dbErr != nil {
		log.Warn().Err(dbErr).Msg("Failed to close migration database")
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: migrate up | down [steps] | version | force <version> | goto <version>")
}
