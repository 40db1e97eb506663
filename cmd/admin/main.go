// Admin tool for the catalog sync dead-letter queue: list parked outcomes
// and requeue them against the catalog updater.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Basilakis/kai-sub013/internal/core/config"
	"github.com/Basilakis/kai-sub013/internal/infra/catalog"
	redisclient "github.com/Basilakis/kai-sub013/internal/infra/redis"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	list := flag.Bool("list", false, "List dead-lettered catalog outcomes")
	requeue := flag.String("requeue", "", "Requeue one dead letter by id")
	requeueAll := flag.Bool("requeue-all", false, "Requeue every dead letter")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("load config: %v", err)
	}
	if cfg.Redis.URL == "" {
		fail("redis is not configured; nothing to inspect")
	}
	if cfg.Catalog.URL == "" && (*requeue != "" || *requeueAll) {
		fail("catalog URL is not configured; cannot requeue")
	}

	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		fail("connect to redis: %v", err)
	}
	defer client.Close()

	queue := redisclient.NewDeadLetterQueue(client)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case *list:
		entries, err := queue.List(ctx)
		if err != nil {
			fail("list dead letters: %v", err)
		}
		if len(entries) == 0 {
			fmt.Println("dead-letter queue is empty")
			return
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  catalog=%s status=%s errors=%d\n",
				e.ID,
				e.EnqueuedAt.Format(time.RFC3339),
				e.Outcome.CatalogID,
				e.Outcome.Status,
				len(e.Outcome.Errors))
		}

	case *requeue != "":
		sync := catalog.NewHTTPSync(cfg.Catalog.URL, cfg.Catalog.Timeout)
		if err := requeueOne(ctx, queue, sync, *requeue); err != nil {
			fail("requeue %s: %v", *requeue, err)
		}
		fmt.Printf("requeued %s\n", *requeue)

	case *requeueAll:
		sync := catalog.NewHTTPSync(cfg.Catalog.URL, cfg.Catalog.Timeout)
		entries, err := queue.List(ctx)
		if err != nil {
			fail("list dead letters: %v", err)
		}
		for _, e := range entries {
			if err := requeueOne(ctx, queue, sync, e.ID); err != nil {
				fmt.Fprintf(os.Stderr, "requeue %s failed: %v\n", e.ID, err)
				continue
			}
			fmt.Printf("requeued %s\n", e.ID)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func requeueOne(
	ctx context.Context,
	queue *redisclient.DeadLetterQueue,
	sync *catalog.HTTPSync,
	id string,
) error {
	entry, err := queue.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := sync.Publish(ctx, entry.Outcome); err != nil {
		return err
	}
	return queue.Remove(ctx, id)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
