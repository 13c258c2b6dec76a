// Package ui implements an interactive terminal stories viewer using bubbletea's Elm architecture.
//
// The TUI has two views over one playback session:
//  1. [ViewerView] : The story on screen with a segmented progress bar per author
//  2. [PickerView] : Jump to another author; playback pauses while the list is open
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// State changes flow from the [playback.Sequencer] through a subscription that only signals; the Update loop
// reads the latest [playback.Snapshot] itself, so rendering never blocks the sequencer.
//
// Keyboard navigation uses arrow and vim-style bindings (h/l, space, a, o, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
