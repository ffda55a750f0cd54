package verification

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"certverify/internal/ocr"
)

// BatchResult is the outcome for one file of a batch.
type BatchResult struct {
	Path   string
	Index  int
	Report *Report
	Err    error
}

// Progress is called after each file with the number of files finished so far.
// Calls are serialised.
type Progress func(done, total int, result BatchResult)

type batchJob struct {
	path  string
	index int
}

// VerifyFiles verifies every file with a pool of workers, looking records up in the
// store. Results keep the order of paths.
func (s *Service) VerifyFiles(ctx context.Context, paths []string, workers int, progress Progress) []BatchResult {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan batchJob, len(paths))
	results := make([]BatchResult, len(paths))

	var mu sync.Mutex
	var done int

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				s.log.Debug().
					Int("worker", workerID).
					Str("file", job.path).
					Int("index", job.index+1).
					Msg("Worker processing certificate")

				result := BatchResult{Path: job.path, Index: job.index}
				if err := ctx.Err(); err != nil {
					result.Err = err
				} else if data, err := os.ReadFile(job.path); err != nil {
					result.Err = err
				} else {
					result.Report, result.Err = s.Verify(ctx, Request{FileName: filepath.Base(job.path), Data: data})
				}
				results[job.index] = result

				mu.Lock()
				done++
				if progress != nil {
					progress(done, len(paths), result)
				}
				mu.Unlock()
			}
		}(w)
	}

	for i, path := range paths {
		jobs <- batchJob{path: path, index: i}
	}
	close(jobs)

	wg.Wait()
	return results
}

// FindCertificateFiles walks root for images and PDFs the extractor accepts.
func FindCertificateFiles(root string) ([]string, error) {
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && ocr.IsSupportedFile(info.Name()) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}
