// Command migrate applies, inspects and rolls back the database schema.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"sociable/internal/config"
	"sociable/internal/database"

	"gorm.io/gorm"
)

const usage = `usage: migrate <command>

  up            apply pending SQL migrations
  auto          run GORM AutoMigrate for every model
  status        show the schema plan and pending migrations
  verify        check applied migrations against this build
  down VERSION  roll back one applied migration`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := run(context.Background(), db, cfg, flag.Args()); err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func run(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error {
	migrator := database.NewMigrator(db, database.GetMigrations())

	switch args[0] {
	case "up":
		n, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		log.Printf("applied %d migration(s)", n)
	case "auto":
		if err := database.AutoMigrate(db.WithContext(ctx)); err != nil {
			return err
		}
		log.Println("auto-migration complete")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return err
		}
		log.Printf("driver=%s mode=%s env=%s sql=%t auto=%t",
			status.Driver, status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate)
		log.Printf("applied=%v", status.AppliedVersions)
		for _, m := range status.PendingMigrations {
			log.Printf("pending %s", m.String())
		}
	case "verify":
		applied, err := migrator.Applied(ctx)
		if err != nil {
			return err
		}
		if err := migrator.Verify(applied); err != nil {
			return err
		}
		log.Printf("%d applied migration(s) match this build", len(applied))
	case "down":
		if len(args) < 2 {
			return errors.New("down needs a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if err := migrator.Down(ctx, version); err != nil {
			return err
		}
		log.Printf("rolled back %06d", version)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
	return nil
}
