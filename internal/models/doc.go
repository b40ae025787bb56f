// Package models defines the deck model shared by every lyricslide component.
//
// The package holds plain data types and the structural edits that act on them:
//   - [Slide] : one presentable unit with its own visual style
//   - [Media] : optional image or video layered behind slide text
//   - [Deck] : ordered slides plus global style defaults and the propagation [Policy]
//   - [SlideTemplate] : immutable named look applied in bulk
//   - [SavedPresentation] : named, timestamped snapshot of a deck's slides
//   - [StyleEdit] : a single field/value change routed through the style resolver
//   - [Song] : a lyrics lookup result
//
// JSON field names match the browser app's local storage layout so previously
// saved blobs decode without translation.
package models
