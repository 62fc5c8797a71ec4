// Package document implements the input-document model: parsing a
// structured YAML text document into a validated Document, and the
// per-(component, action) tagged union of step inputs described in
// spec.md section 9 ("Dynamic polymorphism of step inputs").
package document

// ActionRef identifies a step's component type and the action within that
// component's namespace, e.g. {Component: "host", Action: "ssh_command"}.
type ActionRef struct {
	Component string
	Action    string
}

func (r ActionRef) String() string {
	return r.Component + "." + r.Action
}

// Input is implemented by every concrete, per-(component,action) step input
// schema. Validate reports schema-level problems (missing fields, empty
// host) that Document-level validation folds into its ValidationErrors.
type Input interface {
	Validate() error
	// TargetHost returns the host the executor should dispatch this step's
	// action to.
	TargetHost() string
}

// Step is one leaf of work within a job. Steps are immutable after
// validation: nothing in this package mutates a Step once Validate has
// returned successfully.
type Step struct {
	Action ActionRef
	// ID is a stable string id, unique within its job.
	ID string
	// Input is the typed payload selected by Action.
	Input Input
	// Output is the optional binding name declared for this step's result.
	// It is carried on the Step only; the executor does not publish step
	// results under it.
	Output string
}

// Job is a named, ordered sequence of steps, with optional prerequisite
// jobs it must wait for.
type Job struct {
	Name    string
	Steps   []Step
	WaitFor []string
}

// Document is a version tag plus an ordered mapping from job name to job.
// Order is preserved via JobOrder because spec.md section 3 specifies an
// "ordered mapping", not a plain map.
type Document struct {
	Version  int
	Jobs     map[string]Job
	JobOrder []string
}

// OrderedJobs returns the document's jobs in declaration order.
func (d Document) OrderedJobs() []Job {
	jobs := make([]Job, 0, len(d.JobOrder))
	for _, name := range d.JobOrder {
		jobs = append(jobs, d.Jobs[name])
	}
	return jobs
}
