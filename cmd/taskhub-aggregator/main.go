// Command taskhub-aggregator computes daily usage statistics, either once
// (for backfills) or on a cron schedule.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/taskhub/taskhub/pkg/stats"
)

var (
	dbURL           = flag.String("db-url", getEnv("TASKHUB_POSTGRES_URL", "postgres://localhost/taskhub?sslmode=disable"), "PostgreSQL connection URL")
	dailySchedule   = flag.String("daily-schedule", "5 0 * * *", "Cron schedule for daily aggregation (default: 00:05 UTC)")
	runOnce         = flag.Bool("run-once", false, "Run aggregation once and exit")
	aggregationDate = flag.String("date", "", "Date to aggregate (YYYY-MM-DD). If empty, aggregates yesterday. Only used with --run-once")
)

func main() {
	flag.Parse()

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	aggregator := stats.NewAggregator(db)
	if err := aggregator.InitSchema(context.Background()); err != nil {
		log.Fatalf("Failed to initialize stats schema: %v", err)
	}

	if *runOnce {
		date := time.Now().UTC().AddDate(0, 0, -1)
		if *aggregationDate != "" {
			date, err = time.Parse("2006-01-02", *aggregationDate)
			if err != nil {
				log.Fatalf("Invalid date format: %v", err)
			}
		}

		log.Printf("Running aggregation for date: %s", date.Format("2006-01-02"))
		if err := aggregator.AggregateDaily(context.Background(), date); err != nil {
			log.Fatalf("Aggregation failed: %v", err)
		}
		log.Println("Aggregation completed successfully")
		return
	}

	c := cron.New()
	_, err = c.AddFunc(*dailySchedule, func() {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		log.Printf("Starting daily aggregation for %s", yesterday.Format("2006-01-02"))

		if err := aggregator.AggregateDaily(context.Background(), yesterday); err != nil {
			log.Printf("Daily aggregation failed: %v", err)
		} else {
			log.Println("Daily aggregation completed successfully")
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily aggregation: %v", err)
	}

	c.Start()
	log.Printf("Aggregator started with schedule %q", *dailySchedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down aggregator")
	<-c.Stop().Done()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
