package engine

import (
	"context"
	"fmt"
	"renovateshard/internal/config"
	"renovateshard/internal/runner"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeLister serves total repositories named acme/repo-NNN in pages.
type fakeLister struct {
	total    int
	failPage int
	err      error

	mu    sync.Mutex
	pages []int
}

func (l *fakeLister) ListPage(ctx context.Context, page, perPage int) ([]string, error) {
	l.mu.Lock()
	l.pages = append(l.pages, page)
	l.mu.Unlock()

	if page == l.failPage {
		return nil, l.err
	}
	start := (page - 1) * perPage
	end := min(start+perPage, l.total)
	var names []string
	for i := start; i < end; i++ {
		names = append(names, repoName(i))
	}
	return names, nil
}

func (l *fakeLister) requests() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pages)
}

func repoName(i int) string {
	return fmt.Sprintf("acme/repo-%03d", i)
}

func makeRepos(k int) RepositorySet {
	repos := make(RepositorySet, k)
	for i := range repos {
		repos[i] = RepoName(repoName(i))
	}
	return repos
}

// recordingRunner counts invocations per repository and tracks peak concurrency.
type recordingRunner struct {
	delay time.Duration
	exit  map[string]int
	fail  map[string]error

	mu     sync.Mutex
	calls  map[string]int
	active atomic.Int32
	peak   atomic.Int32
}

func (r *recordingRunner) Run(ctx context.Context, job runner.Job) (runner.Result, error) {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}

	r.mu.Lock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[job.Repo]++
	r.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return runner.Result{}, ctx.Err()
		}
	}
	if err := r.fail[job.Repo]; err != nil {
		return runner.Result{}, err
	}
	return runner.Result{ExitCode: r.exit[job.Repo], Duration: r.delay}, nil
}

func (r *recordingRunner) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func (r *recordingRunner) callsFor(repo string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[repo]
}

func testSecrets() config.Secrets {
	return config.Secrets{
		HostingToken:    "listing",
		RenovateToken:   "renovate",
		RenovateSecrets: "{}",
		GitHubComToken:  "ghcom",
	}
}

func testTemplate(t *testing.T) *runner.Template {
	t.Helper()
	tmpl, err := runner.NewTemplate(config.New().Runner)
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	return tmpl
}
