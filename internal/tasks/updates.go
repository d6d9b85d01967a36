package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Validate Phase = iota
	CreateSongs
	Complete
)

func (p Phase) String() string {
	switch p {
	case Validate:
		return "validate"
	case CreateSongs:
		return "create_songs"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func validatingUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Validate,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Validating %d rows...", total),
	}
}

func invalidRowUpdate(step, total int, res RowResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Validate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ line %d: %v", step, total, res.Line, res.Error),
		Data:    res,
	}
}

func createdUpdate(step, total int, res RowResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (ID: %s)", step, total, res.Title, res.SongID),
		Data:    res,
	}
}

func createFailedUpdate(step, total int, res RowResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Title, res.Error),
		Data:    res,
	}
}

func completeUpdate(result *ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    result.Total,
		Total:   result.Total,
		Message: fmt.Sprintf("Imported %d of %d songs (%d failed)", result.Created, result.Total, result.Failed),
		Data:    result,
	}
}
