// Package editor owns the editing session: the current deck, the lyrics text
// it is derived from, the active-slide cursor and the propagation policy.
//
// The deck is rebuilt from the lyrics text whenever the text or the global
// background changes. Per-slide style edits, structural edits and
// reordering last only until the next rebuild unless PreserveEdits is set.
//
// Every mutation goes through [Session], which serializes access with a
// mutex. Imports run outside the lock; a result is applied only if no newer
// import or load started in the meantime.
package editor
