package document

import (
	"fmt"

	"github.com/lustrefs/manager/pkg/transition"
)

// BuildJobFromTransition resolves the shortest action sequence moving a
// component of the given kind from one transition-graph state to another
// and assembles it into a Job, one Step per resolved action (spec.md
// section 4.1: the transition graph's shortest-path query is how a
// desired end state becomes a concrete sequence of steps). inputFor
// supplies the typed Input for each resolved action name; its result is
// validated before being attached to the Step.
func BuildJobFromTransition(reg *transition.Registry, jobName, component string, from, to transition.State, inputFor func(action string) (Input, error)) (Job, error) {
	actions, err := reg.Resolve(component, from, to)
	if err != nil {
		return Job{}, err
	}

	steps := make([]Step, 0, len(actions))
	for i, action := range actions {
		input, err := inputFor(action)
		if err != nil {
			return Job{}, fmt.Errorf("build input for %s.%s: %w", component, action, err)
		}
		if err := input.Validate(); err != nil {
			return Job{}, fmt.Errorf("validate input for %s.%s: %w", component, action, err)
		}
		steps = append(steps, Step{
			Action: ActionRef{Component: component, Action: action},
			ID:     fmt.Sprintf("%s-%d", jobName, i+1),
			Input:  input,
		})
	}

	return Job{Name: jobName, Steps: steps}, nil
}
