// Package provider models the outcome of one external job-provider call.
package provider

import "github.com/ChristinaDay/FabLab/internal/domain/job"

// Status is the outcome class of a provider call.
type Status string

// Provider call outcomes.
const (
	StatusOK       Status = "ok"
	StatusSkipped  Status = "skipped"
	StatusDegraded Status = "degraded"
)

// Result is what a provider client hands back instead of an error.
// Skipped and degraded results carry no jobs; the cause is for logs and metrics only.
type Result struct {
	provider job.Source
	jobs     []job.Job
	status   Status
	cause    error
}

// NewOK creates a successful result.
func NewOK(p job.Source, jobs []job.Job) Result {
	return Result{provider: p, jobs: jobs, status: StatusOK}
}

// NewSkipped creates a result for a provider that was not called, e.g. missing credentials.
func NewSkipped(p job.Source, cause error) Result {
	return Result{provider: p, status: StatusSkipped, cause: cause}
}

// NewDegraded creates a result for a failed call.
func NewDegraded(p job.Source, cause error) Result {
	return Result{provider: p, status: StatusDegraded, cause: cause}
}

// Provider returns the provider tag.
func (r Result) Provider() job.Source { return r.provider }

// Jobs returns the normalized jobs. Empty unless Status is ok.
func (r Result) Jobs() []job.Job { return r.jobs }

// Status returns the outcome class.
func (r Result) Status() Status { return r.status }

// Cause returns the underlying failure, if any.
func (r Result) Cause() error { return r.cause }
