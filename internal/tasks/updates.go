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
	FetchFeed Phase = iota
	ImportAuthors
	ImportItems
	PruneItems
	BuildGroups
	ExportGroups
)

func (p Phase) String() string {
	switch p {
	case FetchFeed:
		return "fetch_feed"
	case ImportAuthors:
		return "import_authors"
	case ImportItems:
		return "import_items"
	case PruneItems:
		return "prune_items"
	case BuildGroups:
		return "build_groups"
	case ExportGroups:
		return "export_groups"
	default:
		return ""
	}
}

func fetchFeedUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching feed from %s...", name),
	}
}

func importAuthorUpdate(step, total int, handle string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportAuthors,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] @%s", step, total, handle),
	}
}

func importItemUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, id),
	}
}

func skippedItemUpdate(step, total int, skipped SkippedItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ item %d skipped: %s", step, total, skipped.Index, skipped.Reason),
		Data:    skipped,
	}
}

func pruneUpdate(removed int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PruneItems,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Removed %d expired stories", removed),
		Data:    removed,
	}
}

func buildGroupsUpdate(groups, items, dropped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildGroups,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Grouped %d stories into %d authors (%d dropped)", items, groups, dropped),
	}
}

func exportingGroupUpdate(step, total int, handle string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportGroups,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: @%s...", step, total, handle),
	}
}

func exportCompletedUpdate(step, total int, handle string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportGroups,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ @%s (%d files)", step, total, handle, filesCount),
	}
}

func exportFailedUpdate(step, total int, handle string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportGroups,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ @%s: %v", step, total, handle, err),
	}
}
