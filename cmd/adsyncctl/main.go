package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/fr0stylo/adsync/internal/adapters/sqlite"
	"github.com/fr0stylo/adsync/internal/app/domain"
	"github.com/fr0stylo/adsync/internal/config"
	"github.com/fr0stylo/adsync/internal/db"
)

const usage = `usage: adsyncctl [-db path] <command> [flags]

commands:
  brands-list                         list registered brands and watermarks
  brands-add -id ID -page PAGE [-name NAME]
                                      register or update a brand
  brands-reset -id ID                 clear a brand's watermark and cooldown
  tasks-list [-limit N]               list pending tasks in the local queue
  tasks-ack -key KEY                  mark a local task as handled
`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.LoadForTool()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var dbPath string
	flag.StringVar(&dbPath, "db", cfg.Database.Path, "database path without .sqlite suffix")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	database, err := db.New(dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = database.Close() }()

	ctx := context.Background()
	if err := run(ctx, database, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func run(ctx context.Context, database *db.Database, command string, args []string) error {
	brands := sqlite.NewBrandStore(database)
	tasks := sqlite.NewTaskQueue(database)

	switch command {
	case "brands-list":
		list, err := brands.ListBrands(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPAGE\tNAME\tLAST FETCHED\tRATE LIMITED UNTIL")
		for _, b := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.PageID, b.Name, formatTime(b.LastFetchedAt), formatTime(b.RateLimitedUntil))
		}
		return w.Flush()

	case "brands-add":
		fs := flag.NewFlagSet(command, flag.ExitOnError)
		id := fs.String("id", "", "brand id")
		page := fs.String("page", "", "ads library page id")
		name := fs.String("name", "", "company name forwarded in task payloads")
		_ = fs.Parse(args)
		if strings.TrimSpace(*id) == "" {
			return errors.New("-id is required")
		}
		brand := domain.Brand{ID: strings.TrimSpace(*id), PageID: strings.TrimSpace(*page), Name: strings.TrimSpace(*name)}
		if err := brands.UpsertBrand(ctx, brand); err != nil {
			return err
		}
		fmt.Printf("brand %s saved (page=%s)\n", brand.ID, brand.PageID)
		return nil

	case "brands-reset":
		fs := flag.NewFlagSet(command, flag.ExitOnError)
		id := fs.String("id", "", "brand id")
		_ = fs.Parse(args)
		if err := brands.ResetWatermark(ctx, strings.TrimSpace(*id)); err != nil {
			return err
		}
		fmt.Printf("brand %s watermark cleared; next run uses the lookback window\n", *id)
		return nil

	case "tasks-list":
		fs := flag.NewFlagSet(command, flag.ExitOnError)
		limit := fs.Int("limit", 50, "maximum tasks to print")
		_ = fs.Parse(args)
		pending, err := tasks.Pending(ctx, *limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DEDUPE KEY\tBRAND\tAD\tPAGE")
		for _, task := range pending {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", task.DedupeKey, task.BrandID, task.AdID, task.PageID)
		}
		return w.Flush()

	case "tasks-ack":
		fs := flag.NewFlagSet(command, flag.ExitOnError)
		key := fs.String("key", "", "task dedupe key")
		_ = fs.Parse(args)
		if strings.TrimSpace(*key) == "" {
			return errors.New("-key is required")
		}
		return tasks.Ack(ctx, strings.TrimSpace(*key))

	default:
		return fmt.Errorf("unknown command (see -h)")
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
