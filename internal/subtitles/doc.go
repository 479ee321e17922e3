// Package subtitles renders segments as SRT files and reads them back.
//
// Write is the only producer of subtitle files in subgen. It renders cues
// deterministically, so the same segments always yield byte-identical files,
// and replaces the destination atomically. Parse, CountCues and Validate
// support skip-existing checks and post-write verification.
package subtitles
