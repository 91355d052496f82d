package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/minhvu/snapcal/internal/core/config"
	"github.com/minhvu/snapcal/internal/core/domain"
	redisclient "github.com/minhvu/snapcal/internal/infra/redis"
	"github.com/minhvu/snapcal/internal/infra/scheduler"
	"github.com/minhvu/snapcal/internal/infra/storage/postgres"
)

const usage = `Usage: snapcal-admin [-config path] <command> [args]

Commands:
  enqueue <artifact-id> <location>  submit a captured photo for analysis
  retry <job-id>                    restart an exhausted job from attempt 0
  status <job-id>                   print the durable job state
  failures [limit]                  list recent terminal failures
`

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("failed to load config: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "enqueue":
		if len(args) != 3 {
			fatalf("enqueue requires <artifact-id> <location>")
		}
		sched := newScheduler(cfg)
		id, err := sched.Enqueue(ctx, domain.CapturedArtifact{
			ID:        args[1],
			Location:  args[2],
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			fatalf("enqueue failed: %v", err)
		}
		fmt.Printf("enqueued job %s\n", id)

	case "retry":
		if len(args) != 2 {
			fatalf("retry requires <job-id>")
		}
		sched := newScheduler(cfg)
		if err := sched.Retry(ctx, args[1]); err != nil {
			fatalf("retry failed: %v", err)
		}
		fmt.Printf("job %s re-queued from attempt 0\n", args[1])

	case "status":
		if len(args) != 2 {
			fatalf("status requires <job-id>")
		}
		client := newRedisClient(cfg)
		sched := scheduler.New(client, nil, cfg.Scheduler)
		status, err := sched.Status(ctx, args[1])
		if err != nil {
			fatalf("status failed: %v", err)
		}
		attempt, err := sched.CurrentAttemptIndex(ctx, args[1])
		if err != nil {
			fatalf("status failed: %v", err)
		}
		fmt.Printf("job %s: status=%s attempt=%d/%d\n", args[1], status, attempt, domain.MaxAttempts)

		content, err := redisclient.NewNotificationChannel(client).Current(ctx, args[1])
		if err != nil {
			fatalf("failed to read notification: %v", err)
		}
		if content != nil {
			fmt.Printf("notification: %s: %s\n", content.Title, content.Message)
			if content.ActionLabel != "" {
				fmt.Printf("action: %s\n", content.ActionLabel)
			}
		}

	case "failures":
		limit := 20
		if len(args) == 2 {
			if _, err := fmt.Sscanf(args[1], "%d", &limit); err != nil {
				fatalf("invalid limit: %s", args[1])
			}
		}
		if cfg.Database.URL == "" {
			fatalf("failures requires database.url in config")
		}
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()

		rows, err := postgres.NewFailedJobRepo(db).ListRecent(ctx, limit)
		if err != nil {
			fatalf("failed to list failures: %v", err)
		}
		for _, fj := range rows {
			fmt.Printf("%s  job=%s status=%s kind=%s attempt=%d cause=%s\n",
				fj.CreatedAt.Format(time.RFC3339), fj.JobID, fj.Status, fj.Kind, fj.AttemptIndex, fj.Cause)
		}

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func newRedisClient(cfg *config.AppConfig) *redisclient.Client {
	if cfg.Redis.URL == "" {
		fatalf("this command requires redis.url in config")
	}
	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		fatalf("failed to connect to redis: %v", err)
	}
	return client
}

func newScheduler(cfg *config.AppConfig) *scheduler.Scheduler {
	return scheduler.New(newRedisClient(cfg), nil, cfg.Scheduler)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
