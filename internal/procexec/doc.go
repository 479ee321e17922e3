// Package procexec runs external tools with line-oriented output callbacks.
//
// Every command runs in its own process group. Cancelling the context sends
// SIGTERM to the whole group and escalates to SIGKILL once the grace period
// elapses, so helper processes spawned by a tool (ffmpeg under yt-dlp, for
// example) never outlive a cancelled job. An optional idle watchdog reports
// when a tool stops printing.
package procexec
