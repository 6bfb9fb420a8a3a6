package engine

import "fmt"

// FetchError aborts discovery: a listing page could not be retrieved.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch repositories: page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// JobFailure describes a job that could not run (Err set) or exited non-zero.
// It is logged and never stops the sweep.
type JobFailure struct {
	Repo     RepoName
	ExitCode int
	Err      error
}

func (e *JobFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("renovate job for %s failed: %v", e.Repo, e.Err)
	}
	return fmt.Sprintf("renovate job for %s exited with code %d", e.Repo, e.ExitCode)
}

func (e *JobFailure) Unwrap() error { return e.Err }
