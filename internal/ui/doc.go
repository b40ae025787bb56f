// Package ui implements the in-terminal presenter using bubbletea's Elm architecture.
//
// The presenter has two views:
//  1. [PresentView] : the current slide in its own colors, a preview of the
//     next slide, speaker notes and a slide counter
//  2. [OverviewView] : a filterable list of every slide for jumping ahead
//
// Navigation wraps at both ends: → / space / l advance, ← / h go back, o opens
// the overview and esc leaves presentation mode. When a [Screen] is attached,
// every cursor change is mirrored to it asynchronously and failures only show
// up as a status line.
package ui
