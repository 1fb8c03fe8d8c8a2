// Command main fills the database with demo users, projects and posts.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"shiplog/internal/config"
	"shiplog/internal/database"
	"shiplog/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of random users to create")
	numProjects := flag.Int("projects", 15, "Number of random projects to create")
	numPosts := flag.Int("posts", 150, "Number of random posts to create")
	maxDays := flag.Int("days", 30, "Spread random posts over this many days")
	randSeed := flag.Int64("seed", 0, "Seed for reproducible random data (0 = random)")
	fixture := flag.String("fixture", "", "YAML fixture to load instead of random data (\"demo\" for the bundled one)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	var res *seed.Result
	switch *fixture {
	case "":
		res, err = s.SeedRandom(ctx, seed.Options{
			NumUsers:    *numUsers,
			NumProjects: *numProjects,
			NumPosts:    *numPosts,
			MaxDays:     *maxDays,
			Seed:        *randSeed,
		})
	case "demo":
		var fx *seed.Fixture
		if fx, err = seed.DemoFixture(); err == nil {
			res, err = s.ApplyFixture(ctx, fx)
		}
	default:
		res, err = applyFile(ctx, s, *fixture)
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d projects and %d posts", res.Users, res.Projects, res.Posts)
	log.Println("Sign in as any seeded user with POST /api/auth/dev-login")
}

func applyFile(ctx context.Context, s *seed.Seeder, path string) (*seed.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	fx, err := seed.LoadFixture(f)
	if err != nil {
		return nil, err
	}
	return s.ApplyFixture(ctx, fx)
}
