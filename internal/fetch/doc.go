// Package fetch downloads the audio track of a remote video into a job's
// private workspace.
//
// AudioSource is the seam the runner depends on; YTDLP is the production
// implementation that shells out to yt-dlp, forwards its download progress,
// watches for stalls, and classifies failures into job error kinds.
package fetch
