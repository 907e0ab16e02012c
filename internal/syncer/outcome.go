package syncer

import "github.com/fernledger/fern/internal/sync"

// Status is the three-way outcome of applying one change.
type Status int

const (
	// Applied means the change was written and released.
	Applied Status = iota
	// Conflicted means the change was blocked and rolled back.
	Conflicted
	// Failed means the change errored and was rolled back; the batch
	// continues.
	Failed
)

// Outcome carries the result of one change through the orchestrator's
// accumulation loop. Result is set for Applied and Failed, Conflict for
// Conflicted. Info optionally carries an informational both_modified
// conflict alongside an Applied outcome (local-first policy).
type Outcome struct {
	Status   Status
	Result   sync.Result
	Conflict *sync.Conflict
	Info     *sync.Conflict
}

func applied(result sync.Result, info *sync.Conflict) Outcome {
	result.Success = true
	return Outcome{Status: Applied, Result: result, Info: info}
}

func conflicted(c *sync.Conflict) Outcome {
	return Outcome{Status: Conflicted, Conflict: c}
}

func failed(result sync.Result, err error) Outcome {
	result.Success = false
	result.Error = err.Error()
	return Outcome{Status: Failed, Result: result}
}
