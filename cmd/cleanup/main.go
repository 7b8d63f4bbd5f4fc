package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ehopn/invoice_go_server/config"
	"github.com/ehopn/invoice_go_server/internal/database"
	"github.com/ehopn/invoice_go_server/internal/repository"
)

var (
	dryRun      = flag.Bool("dry-run", true, "Dry run mode, don't actually delete files")
	retainHours = flag.Int("retain-hours", 24, "Hours to keep unreferenced upload files")
)

func main() {
	flag.Parse()

	log.Println("Starting upload cleanup...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 还被发票引用的文件不能删
	urls, err := repository.NewInvoiceRepository(db).ListFileURLs()
	if err != nil {
		log.Fatalf("Failed to list referenced files: %v", err)
	}
	referenced := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		referenced[filepath.Base(u)] = struct{}{}
	}
	log.Printf("Found %d referenced invoice files", len(referenced))

	uploadDir := cfg.Upload.Dir
	expireTime := time.Now().Add(-time.Duration(*retainHours) * time.Hour)

	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		log.Fatalf("Failed to read upload dir %s: %v", uploadDir, err)
	}

	var totalSize, deletedSize int64
	totalFiles, deletedFiles := 0, 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		totalFiles++
		totalSize += info.Size()

		if _, ok := referenced[entry.Name()]; ok {
			continue
		}
		if info.ModTime().After(expireTime) {
			continue
		}

		log.Printf("  - %s (%s, %s old)",
			entry.Name(),
			formatSize(info.Size()),
			time.Since(info.ModTime()).Round(time.Hour))

		if !*dryRun {
			if err := os.Remove(filepath.Join(uploadDir, entry.Name())); err != nil {
				log.Printf("    Failed to delete: %v", err)
				continue
			}
		}
		deletedFiles++
		deletedSize += info.Size()
	}

	log.Println(strings.Repeat("=", 60))
	log.Printf("Total files: %d (%s)", totalFiles, formatSize(totalSize))
	log.Printf("Orphan files removed: %d (%s)", deletedFiles, formatSize(deletedSize))
	if *dryRun {
		log.Println("DRY RUN MODE - no files were actually deleted")
		log.Println("Run with -dry-run=false to delete them")
	}
	log.Println(strings.Repeat("=", 60))
}

// formatSize 格式化文件大小
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
