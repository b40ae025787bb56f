package tasks

import "fmt"

// ProgressUpdate represents a progress event during a batch run.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Phase of a batch run.
type Phase int

const (
	FetchSongs Phase = iota
	BuildDecks
	ExportDecks
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchSongs:
		return "fetch_songs"
	case BuildDecks:
		return "build_decks"
	case ExportDecks:
		return "export_decks"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func fetchingSongUpdate(step, total int, query string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking up %q...", step, total, query),
	}
}

func builtDeckUpdate(step, total int, job DeckJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildDecks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%d slides)", step, total, job.Title, job.Deck.Len()),
		Data:    job.Deck.Len(),
	}
}

func exportCompletedUpdate(step, total int, res DeckResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportDecks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, res.Title, len(res.Files)),
		Data:    res,
	}
}

func exportFailedUpdate(step, total int, res DeckResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportDecks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Title, res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Manifest written to %s", path),
	}
}
