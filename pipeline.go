package degrid

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Summary counts the outcome of a Scan.
type Summary struct {
	Images     int
	Animations int
	Videos     int
	Skipped    int
	Failed     int
}

// Total returns the number of files restored.
func (s Summary) Total() int {
	return s.Images + s.Animations + s.Videos
}

type tally struct {
	mu sync.Mutex
	s  Summary
}

func (t *tally) restored(k Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch k {
	case KindStillImage:
		t.s.Images++
	case KindAnimatedSequence:
		t.s.Animations++
	case KindVideoSequence:
		t.s.Videos++
	}
}

func (t *tally) skipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Skipped++
}

func (t *tally) failed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Failed++
}

func (t *tally) summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

func (r *Restorer) findFiles(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	info, err := os.Stat(base)
	if err != nil {
		return nil, nil, err
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(base)
		if err != nil {
			return nil, nil, err
		}
		for _, e := range entries {
			files = append(files, filepath.Join(base, e.Name()))
		}
	} else {
		files = append(files, base)
	}

	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, file := range files {
			name := filepath.Base(file)

			// Ignore any hidden files, otherwise we end up fighting with things like Spotlight, etc.
			if name[0] == '.' {
				continue
			}

			info, err := os.Stat(file)
			if err != nil {
				errc <- err
				return
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				continue
			}

			if KindOf(file) == KindUnknown || isRestored(file) {
				continue
			}

			select {
			case out <- file:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc, nil
}

func exists(file string) (bool, error) {
	_, err := os.Stat(file)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// restoreOne restores file into the output directory. Only errors that
// should stop the whole scan are returned.
func (r *Restorer) restoreOne(ctx context.Context, file, output string, t *tally) error {
	out := filepath.Join(output, OutputName(file))

	ok, err := exists(out)
	if err != nil {
		return err
	}
	if ok {
		r.logger.Printf("Skipping \"%s\", \"%s\" already exists\n", file, out)
		t.skipped()
		return nil
	}

	sha, err := sha1File(file)
	if err != nil {
		return err
	}

	if !r.opts.Force {
		rec, err := r.db.Find(sha, r.opts.Columns)
		if err != nil {
			return err
		}
		if rec != nil {
			r.logger.Printf("Skipping \"%s\", already restored to \"%s\"\n", file, rec.Output)
			t.skipped()
			return nil
		}
	}

	rec, preview, err := r.restore(ctx, file, out, sha)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Println(err)
		t.failed()
		return nil
	}

	if _, err := r.db.Add(rec, preview); err != nil {
		return err
	}
	t.restored(rec.Kind)

	return nil
}

func (r *Restorer) fileWorker(ctx context.Context, in <-chan string, output string, t *tally) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			if err := r.restoreOne(ctx, file, output, t); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

// waitForPipeline returns the first error from any stage, cancelling the
// rest, once every stage has finished
func waitForPipeline(cancel context.CancelFunc, errs ...<-chan error) error {
	var first error
	for err := range mergeErrors(errs...) {
		if err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan restores every supported file in the top level of the input
// directory, or input itself if it is a file, writing the results to the
// output directory which is created if necessary. Files that fail to restore
// are logged and counted in the returned Summary rather than stopping the
// scan.
func (r *Restorer) Scan(ctx context.Context, input, output string) (Summary, error) {
	dir, err := filepath.Abs(input)
	if err != nil {
		return Summary{}, err
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return Summary{}, err
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error
	t := new(tally)

	files, errc, err := r.findFiles(ctx, dir)
	if err != nil {
		return Summary{}, err
	}
	errcList = append(errcList, errc)

	for i := 0; i < r.opts.Workers; i++ {
		errc, err := r.fileWorker(ctx, files, output, t)
		if err != nil {
			return Summary{}, err
		}
		errcList = append(errcList, errc)
	}

	err = waitForPipeline(cancelFunc, errcList...)
	return t.summary(), err
}
