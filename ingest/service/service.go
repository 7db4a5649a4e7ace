package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"surveyrag/config"
	"surveyrag/ingest/indexer"
	"surveyrag/ingest/partition"
	"surveyrag/ingest/summarize"
	"surveyrag/model"
	"surveyrag/store"
)

// Service watches the source directory for PDF reports, partitions them,
// summarizes the extracted elements and writes them into the dual store.
// Image files produced by the partition service land in the images directory
// and are picked up as a separate pass after each document.
type Service struct {
	logger *slog.Logger
	store  store.DBStorer
	parts  *partition.Client
	summ   *summarize.Summarizer
	idx    *indexer.Indexer
	cfg    config.AppConfig

	fileMutex       sync.Mutex
	fileFirstSeen   map[string]time.Time
	filesProcessing map[string]bool
}

func New(storer store.DBStorer, embedder model.Embedder, cfg config.AppConfig) *Service {
	createDirectories(cfg.Ingest.SourceDir, cfg.Ingest.ArchiveDir, cfg.Ingest.BadDir, cfg.Ingest.ImagesDir)

	llm := model.NewOllamaLLM(cfg.Completion)
	vision := model.NewOpenAIChat(cfg.Vision)

	return &Service{
		logger:          slog.Default(),
		store:           storer,
		parts:           partition.NewClient(cfg.Partitioner),
		summ:            summarize.New(llm, vision, cfg.Summarize),
		idx:             indexer.New(storer, embedder),
		cfg:             cfg,
		fileFirstSeen:   make(map[string]time.Time),
		filesProcessing: make(map[string]bool),
	}
}

func (s *Service) Stop() {
	s.logger.Info("ingest service stopped")
}

func (s *Service) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Purge half-written entries left by a previously interrupted run.
	if purged, err := s.store.Verify(ctx); err != nil {
		log.Fatal("store verification failed: ", err)
	} else if purged > 0 {
		s.logger.Warn("store repaired on startup", "purged", purged)
	}

	fileChan := make(chan string, 10)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(fileChan)
		s.watchFiles(ctx, fileChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.processFiles(ctx, fileChan)
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)

	<-sigch
	log.Println("Received shutdown signal, shutting down gracefully...")

	cancel()
	signal.Stop(sigch)
	close(sigch)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All goroutines stopped successfully")
	case <-shutdownCtx.Done():
		log.Println("Timeout waiting for goroutines to stop, forcing shutdown...")
	}

	s.Stop()
}

// watchFiles polls the source directory and emits a file path once the file
// has not changed for the configured settle time.
func (s *Service) watchFiles(ctx context.Context, fileChan chan<- string) {
	s.logger.Info("monitoring source folder", "dir", s.cfg.Ingest.SourceDir)

	settle := time.Duration(s.cfg.Ingest.SettleSeconds) * time.Second
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("file watcher stopped")
			return
		case <-ticker.C:
			files, err := os.ReadDir(s.cfg.Ingest.SourceDir)
			if err != nil {
				s.logger.Error("error reading source directory", "error", err.Error())
				continue
			}

			currentFiles := make(map[string]bool)

			for _, file := range files {
				if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), ".pdf") {
					continue
				}

				filePath := filepath.Join(s.cfg.Ingest.SourceDir, file.Name())
				currentFiles[filePath] = true

				s.fileMutex.Lock()
				if s.filesProcessing[filePath] {
					s.fileMutex.Unlock()
					continue
				}

				if _, exists := s.fileFirstSeen[filePath]; !exists {
					s.fileFirstSeen[filePath] = time.Now()
					s.logger.Info("new file detected", "path", filePath)
					s.fileMutex.Unlock()
					continue
				}

				firstSeen := s.fileFirstSeen[filePath]
				s.fileMutex.Unlock()

				if time.Since(firstSeen) > settle {
					s.fileMutex.Lock()
					s.filesProcessing[filePath] = true
					s.fileMutex.Unlock()

					select {
					case fileChan <- filePath:
					case <-ctx.Done():
						return
					}
				}
			}

			// Drop tracking state for files that disappeared.
			s.fileMutex.Lock()
			for filePath := range s.fileFirstSeen {
				if !currentFiles[filePath] {
					delete(s.fileFirstSeen, filePath)
					delete(s.filesProcessing, filePath)
				}
			}
			s.fileMutex.Unlock()
		}
	}
}

func (s *Service) processFiles(ctx context.Context, fileChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("file processor stopped")
			return
		case filePath, ok := <-fileChan:
			if !ok {
				return
			}

			s.logger.Info("processing file", "path", filePath)
			if err := s.processFile(ctx, filePath); err != nil {
				if ctx.Err() != nil {
					// Interrupted mid-file: leave it in source so the next
					// run picks it up again.
					return
				}
				// A bad file must not abort the whole corpus build.
				s.logger.Error("file processing failed", "path", filePath, "error", err.Error())
				s.moveFile(filePath, s.cfg.Ingest.BadDir)
			} else {
				s.moveFile(filePath, s.cfg.Ingest.ArchiveDir)
			}

			s.fileMutex.Lock()
			delete(s.filesProcessing, filePath)
			delete(s.fileFirstSeen, filePath)
			s.fileMutex.Unlock()

			// Images extracted by the partition service arrive through the
			// images directory, not inline.
			if err := s.ingestImages(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error("image ingestion failed", "error", err.Error())
			}
		}
	}
}

func (s *Service) processFile(ctx context.Context, filePath string) error {
	if err := partition.CropHeaderFooter(filePath, filePath, s.cfg.Ingest.CropTop, s.cfg.Ingest.CropBottom); err != nil {
		return err
	}

	segments, err := s.parts.Partition(ctx, filePath)
	if err != nil {
		return err
	}

	texts, tables := partition.ExtractElements(segments, filepath.Base(filePath))
	s.logger.Info("elements extracted", "path", filePath, "texts", len(texts), "tables", len(tables))

	textPairs, err := s.summ.Batch(ctx, texts)
	if err != nil {
		return err
	}
	tablePairs, err := s.summ.Batch(ctx, tables)
	if err != nil {
		return err
	}

	if err := s.idx.Index(ctx, textPairs); err != nil {
		return err
	}
	return s.idx.Index(ctx, tablePairs)
}

func (s *Service) ingestImages(ctx context.Context) error {
	images, err := partition.LoadImages(s.cfg.Ingest.ImagesDir, s.cfg.Ingest.ImageExt)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}

	pairs, err := s.summ.Batch(ctx, images)
	if err != nil {
		return err
	}
	if err := s.idx.Index(ctx, pairs); err != nil {
		return err
	}

	// Archive indexed images so the next pass does not re-index them.
	for _, img := range images {
		s.moveFile(filepath.Join(s.cfg.Ingest.ImagesDir, img.Source), s.cfg.Ingest.ArchiveDir)
	}
	return nil
}

// moveFile relocates a processed file into a dated subdirectory, suffixing
// the name on conflicts.
func (s *Service) moveFile(filePath, destRoot string) {
	currentDate := time.Now().Format("2006-01-02")
	destDir := filepath.Join(destRoot, currentDate)

	if _, err := os.Stat(destDir); os.IsNotExist(err) {
		if err := os.MkdirAll(destDir, 0755); err != nil {
			s.logger.Error("error creating directory", "error", err.Error())
			return
		}
	}

	destPath := filepath.Join(destDir, filepath.Base(filePath))

	counter := 1
	for {
		if _, err := os.Stat(destPath); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(destPath)
		baseName := strings.TrimSuffix(filepath.Base(filePath), ext)
		destPath = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", baseName, counter, ext))
		counter++
	}

	if err := os.Rename(filePath, destPath); err == nil {
		s.logger.Info("file archived", "path", destPath)
		return
	}

	// Rename fails across filesystems; fall back to copy and remove.
	in, err := os.Open(filePath)
	if err != nil {
		s.logger.Error("error opening file", "error", err.Error())
		return
	}
	defer in.Close()

	out, err := os.Create(destPath)
	if err != nil {
		s.logger.Error("error creating file", "error", err.Error())
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		s.logger.Error("error moving file", "error", err.Error())
		return
	}

	in.Close()
	os.Remove(filePath)
	s.logger.Info("file archived", "path", destPath)
}

func createDirectories(dirs ...string) {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("error creating directory: ", err)
		}
	}
}
