package acl

import (
	"encoding/base64"
	"sync"

	"github.com/coffeegist/bofhound/modules/ui"
)

// Below this many descriptors the goroutine pool costs more than it
// saves.
const parallelThreshold = 100

// Task is one security descriptor to resolve, detached from the object
// model so workers touch nothing shared.
type Task struct {
	ObjectID          string
	EntryType         string
	DistinguishedName string
	RawAces           string
	HasLaps           bool
}

type Outcome struct {
	ObjectID       string
	Relationships  []Relationship
	IsACLProtected bool
}

// ResolveAll resolves every task against one shared read-only context.
// Output is identical whether it ran sequentially or across workers; a
// failing unit degrades to an empty outcome instead of taking the run
// down.
func ResolveAll(tasks []Task, ctx *LookupContext, workers int) map[string]Outcome {
	if ctx == nil || len(ctx.SIDTypes) == 0 {
		ui.Warn().Msg("Resolving ACLs without SID mappings, principal types will show up as Unknown")
	}

	outcomes := make(map[string]Outcome, len(tasks))

	if workers <= 1 || len(tasks) < parallelThreshold {
		for _, task := range tasks {
			outcome := resolveSafely(task, ctx)
			outcomes[outcome.ObjectID] = outcome
		}
		return outcomes
	}

	queue := make(chan Task, len(tasks))
	for _, task := range tasks {
		queue <- task
	}
	close(queue)

	results := make(chan Outcome, len(tasks))
	pb := ui.ProgressBar("Resolving security descriptors", len(tasks))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				results <- resolveSafely(task, ctx)
				pb.Add(1)
			}
		}()
	}
	wg.Wait()
	pb.Finish()
	close(results)

	for outcome := range results {
		outcomes[outcome.ObjectID] = outcome
	}
	return outcomes
}

func resolveSafely(task Task, ctx *LookupContext) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			ui.Warn().Msgf("ACL resolution failed for %v: %v", task.ObjectID, r)
			outcome = Outcome{ObjectID: task.ObjectID}
		}
	}()
	return resolveTask(task, ctx)
}

func resolveTask(task Task, ctx *LookupContext) Outcome {
	outcome := Outcome{ObjectID: task.ObjectID}
	if task.RawAces == "" {
		return outcome
	}

	data, err := base64.StdEncoding.DecodeString(task.RawAces)
	if err != nil {
		ui.Warn().Msgf("Undecodable security descriptor on %v: %v", task.ObjectID, err)
		return outcome
	}
	sd, err := ParseSecurityDescriptor(data)
	if err != nil {
		ui.Warn().Msgf("Malformed security descriptor on %v: %v", task.ObjectID, err)
		return outcome
	}

	outcome.IsACLProtected = sd.IsACLProtected()
	outcome.Relationships = ResolveRelationships(sd, task.EntryType, task.DistinguishedName, task.HasLaps, ctx)
	return outcome
}
