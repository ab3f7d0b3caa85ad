// Package ui implements the live job dashboard using bubbletea's Elm
// architecture.
//
// The [Model] implements bubbletea's standard Init/Update/View pattern. It
// never talks to the backend for display data: a half-second ticker re-reads
// the job cache and connectivity flags that the push channel listener keeps
// fresh, so the dashboard stays live even while the terminal is idle.
//
// The one write path is job deletion (d), which enqueues the request on the
// background dispatcher so a quit mid-request still drains cleanly. The cache
// entry disappears when the backend acknowledges the deletion on the push
// channel, not optimistically.
//
// Keyboard navigation uses vim-style bindings (j/k, d, c, ?, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
