package document

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lustrefs/manager/pkg/cperrors"
)

type rawRoot struct {
	Version int      `yaml:"version"`
	Jobs    yaml.Node `yaml:"jobs"`
}

type rawJob struct {
	Name    string    `yaml:"name"`
	Steps   []rawStep `yaml:"steps"`
	WaitFor []string  `yaml:"wait_for"`
}

type rawStep struct {
	Action  string    `yaml:"action"`
	ID      string    `yaml:"id"`
	Inputs  yaml.Node `yaml:"inputs"`
	Outputs string    `yaml:"outputs"`
}

// Parse reads a document in its structured YAML text form (spec.md section
// 6) and returns a fully validated Document. Validation rejects unknown
// component/action names, input payloads that fail their per-variant
// schema, duplicated step ids within a job, and unresolved wait_for names
// — all reported synchronously via a *cperrors.ValidationError, with
// nothing persisted.
func Parse(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read document: %w", err)
	}

	var root rawRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Document{}, cperrors.NewValidationError("document", "malformed YAML: %v", err)
	}

	errs := &ValidationErrors{}
	doc := Document{
		Version: root.Version,
		Jobs:    make(map[string]Job),
	}

	if root.Jobs.Kind != 0 && root.Jobs.Kind != yaml.MappingNode {
		errs.Add("jobs: must be a mapping of job name to job definition")
	} else {
		// yaml.Node mapping content is a flat [key, value, key, value, ...]
		// sequence in declaration order; walking it directly is how this
		// package preserves the document's ordered mapping (spec.md
		// section 3) instead of collapsing it into an unordered Go map.
		content := root.Jobs.Content
		for i := 0; i+1 < len(content); i += 2 {
			name := content[i].Value
			var rj rawJob
			if err := content[i+1].Decode(&rj); err != nil {
				errs.AddError(name, fmt.Sprintf("malformed job: %v", err))
				continue
			}

			job := buildJob(errs, name, rj)

			if _, dup := doc.Jobs[name]; dup {
				errs.Add("duplicate job name %q", name)
				continue
			}
			doc.Jobs[name] = job
			doc.JobOrder = append(doc.JobOrder, name)
		}
	}

	// wait_for references must resolve against the full set of job names.
	for _, name := range doc.JobOrder {
		for _, dep := range doc.Jobs[name].WaitFor {
			if _, ok := doc.Jobs[dep]; !ok {
				errs.AddError(name, fmt.Sprintf("wait_for references unknown job %q", dep))
			}
		}
	}

	if errs.HasErrors() {
		return Document{}, cperrors.NewValidationError("document", "%s", errs.Error())
	}
	return doc, nil
}

// buildJob decodes one job's steps, dispatching each step's inputs node to
// the decoder registered for its (component, action) pair. Problems are
// recorded directly against errs, scoped per step via AddStepError.
func buildJob(errs *ValidationErrors, jobName string, rj rawJob) Job {
	job := Job{Name: rj.Name, WaitFor: rj.WaitFor}

	seenIDs := make(map[string]bool)
	for _, rs := range rj.Steps {
		label := stepLabel(rs.ID)

		parts := strings.SplitN(rs.Action, ".", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			errs.AddStepError(jobName, label, fmt.Sprintf("action %q must be of the form component.action", rs.Action))
			continue
		}
		ref := ActionRef{Component: parts[0], Action: parts[1]}

		dec, ok := lookup(ref)
		if !ok {
			errs.AddStepError(jobName, label, fmt.Sprintf("unknown action %q", rs.Action))
			continue
		}

		if rs.ID == "" {
			errs.AddStepError(jobName, label, "id is required")
			continue
		}
		if seenIDs[rs.ID] {
			errs.AddStepError(jobName, label, "duplicate step id")
			continue
		}
		seenIDs[rs.ID] = true

		var inputNode *yaml.Node
		if rs.Inputs.Kind != 0 {
			inputNode = &rs.Inputs
		}
		input, err := dec(inputNode)
		if err != nil {
			errs.AddStepError(jobName, label, fmt.Sprintf("invalid inputs: %v", err))
			continue
		}
		if err := input.Validate(); err != nil {
			errs.AddStepError(jobName, label, err.Error())
			continue
		}

		job.Steps = append(job.Steps, Step{
			Action: ref,
			ID:     rs.ID,
			Input:  input,
			Output: rs.Outputs,
		})
	}

	return job
}

// stepLabel returns a step's id for error scoping, or a placeholder when
// the step has none yet (the "id is required" case itself).
func stepLabel(id string) string {
	if id == "" {
		return "(unnamed)"
	}
	return id
}
