// Package services looks up song lyrics.
//
// # Service Interface
//
// Every provider implements [Service]. The editor only needs Lookup, so a
// provider can be swapped without touching the deck logic.
//
// # Genius
//
// [GeniusService] searches the Genius API with a bearer token, takes the
// first hit and scrapes the lyrics from the song page. Lyrics live in
// elements marked data-lyrics-container="true"; older pages use a "lyrics"
// class or a generated Lyrics__Container class, which are tried in turn.
// Upstream calls share a rate limiter.
//
// # Lyrics Client
//
// [LyricsClient] talks to the companion lyrics server (GET /lyrics?song=).
// Every failure, including 400, 404 and 500 responses, is reported as
// [shared.ErrLookupFailed] with the server's error message attached.
//
// # Caching
//
// [CachedService] wraps any provider with a [SongCacher], typically
// repositories.SongCache.
package services
