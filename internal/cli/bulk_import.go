package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"linkstash/internal/config"
	"linkstash/internal/database"
	"linkstash/internal/database/items"
	"linkstash/internal/importer"
	"linkstash/internal/scraper"
)

// BulkImportCommand imports a file of URLs through the pipeline.
type BulkImportCommand struct {
	FilePath     string
	DatabasePath string
	OwnerID      uint
}

// NewBulkImportCommand creates a new BulkImportCommand.
func NewBulkImportCommand() *BulkImportCommand {
	return &BulkImportCommand{}
}

// ParseFlags parses command line flags.
func (cmd *BulkImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	var owner uint64
	fs.StringVar(&cmd.FilePath, "file", "", "File with one URL per line (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.Uint64Var(&owner, "owner", 0, "User ID that owns the imported items")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import a list of URLs, one per line, printing progress as each\n")
		fmt.Fprintf(os.Stderr, "URL finishes. Interrupting with Ctrl-C stops after the current URL\n")
		fmt.Fprintf(os.Stderr, "and leaves the remaining ones as PENDING rows.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file urls.txt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -file urls.txt -db ./linkstash.db -owner 2\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd.OwnerID = uint(owner)

	if cmd.FilePath == "" {
		fs.Usage()
		return fmt.Errorf("-file is required")
	}

	return nil
}

// Run executes the import command.
func (cmd *BulkImportCommand) Run() error {
	urls, err := readURLFile(cmd.FilePath)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs found in %s", cmd.FilePath)
	}

	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	db, err := database.NewDatabase(absDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	cfg := config.NewConfig()
	var fetcher importer.Fetcher
	if cfg.Scraper.APIKey != "" {
		fetcher = scraper.NewClient(cfg.Scraper.BaseURL, cfg.Scraper.APIKey, cfg.Scraper.Timeout)
	} else {
		fetcher = scraper.NewLocal(cfg.Scraper.Timeout)
	}

	pipeline := importer.NewPipeline(items.NewRepository(db.DB), fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interrupt
		fmt.Println("\nInterrupted, finishing the current URL...")
		cancel()
	}()

	fmt.Printf("Importing %d URLs from %s\n", len(urls), cmd.FilePath)

	run, err := pipeline.Run(ctx, cmd.OwnerID, urls)
	if err != nil {
		return fmt.Errorf("import failed to start: %w", err)
	}

	succeeded, failed := 0, 0
	for event := range run.Events() {
		marker := "ok"
		if event.Status == importer.ProgressFailed {
			marker = "FAILED"
			failed++
		} else {
			succeeded++
		}
		fmt.Printf("[%d/%d] %s %s\n", event.Completed, event.Total, marker, event.URL)
	}

	if err := run.Err(); err != nil {
		if ctx.Err() != nil {
			fmt.Printf("Stopped early: %d imported, %d failed, %d left pending\n",
				succeeded, failed, len(urls)-succeeded-failed)
			return nil
		}
		return fmt.Errorf("import aborted: %w", err)
	}

	fmt.Printf("Done: %d imported, %d failed\n", succeeded, failed)
	return nil
}

// readURLFile reads one URL per line, skipping blanks and # comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL file: %w", err)
	}
	return urls, nil
}
