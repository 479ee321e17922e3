// Package transcribe turns an audio file into timed text segments.
//
// SpeechEngine is the seam the runner depends on. WhisperCLI drives the
// whisper.cpp command-line tool, parses its timestamped stdout, and forwards
// stderr progress. Normalize repairs engine output so every returned segment
// list is ordered, non-overlapping, and free of empty text. EnginePool bounds
// how many engine processes hold a model in memory at once.
package transcribe
