// Command main runs the database seeder for Sociable.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"sociable/internal/bootstrap"
	"sociable/internal/config"
	"sociable/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	numHashTags := flag.Int("hashtags", 15, "Number of hashtags to create")
	follows := flag.Int("follows", 3, "Users each generated user follows")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one from the clock)")
	fixture := flag.String("fixture", "", "Load a YAML fixture instead of generating data")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	staffEmail := flag.String("staff-email", "", "Create or promote this staff account")
	staffPassword := flag.String("staff-password", "", "Password for -staff-email")
	flag.Parse()

	log.Println("Database Seeder")
	log.Println("===============")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}

	ctx := context.Background()

	if *staffEmail != "" {
		if *staffPassword == "" {
			log.Fatal("-staff-password is required with -staff-email")
		}
		user, err := bootstrap.NewUserService(db, rdb).EnsureStaff(ctx, *staffEmail, *staffPassword)
		if err != nil {
			log.Fatalf("Staff bootstrap failed: %v", err)
		}
		log.Printf("Staff account ready: %s (id %d)", user.Email, user.ID)
		if *fixture == "" && !isFlagSet("users") && !isFlagSet("posts") {
			return
		}
	}

	if *randSeed == 0 {
		*randSeed = time.Now().UnixNano()
	}
	s := seed.NewSeeder(db, seed.Options{
		NumUsers:       *numUsers,
		NumPosts:       *numPosts,
		NumHashTags:    *numHashTags,
		FollowsPerUser: *follows,
		RandSeed:       *randSeed,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	var summary seed.Summary
	if *fixture != "" {
		log.Printf("Applying fixture %s", *fixture)
		fx, err := seed.LoadFixture(*fixture)
		if err != nil {
			log.Fatalf("Loading fixture failed: %v", err)
		}
		if summary, err = s.ApplyFixture(ctx, fx); err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else {
		log.Printf("Target: %d users, %d posts, %d hashtags, clean=%v, seed=%d",
			*numUsers, *numPosts, *numHashTags, *shouldClean, *randSeed)
		if summary, err = s.Seed(ctx); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Printf("Generated users log in with password %q", seed.DefaultPassword)
	}

	log.Printf("Seeding complete: %s", summary)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
