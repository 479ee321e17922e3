package runner

import "subgen/internal/job"

// Hint suggests an operator action for a failure kind.
func Hint(kind job.ErrorKind) string {
	switch kind {
	case job.KindNotFound:
		return "check the URL; the video may be removed or region locked"
	case job.KindNetworkError:
		return "check connectivity and retry; update yt-dlp if failures persist"
	case job.KindPermissionDenied:
		return "export fresh browser cookies and set fetch.cookies_file"
	case job.KindExternalToolMissing:
		return "install the tool or set its binary path in config; run 'subgen check'"
	case job.KindModelMissing:
		return "download the model into transcribe.model_dir; run 'subgen models'"
	case job.KindTimeout:
		return "raise transcribe.timeout_seconds or pick a faster model tier"
	case job.KindMalformedOutput:
		return "rerun with --log-level debug to inspect tool output"
	case job.KindPathNotWritable:
		return "check permissions and free space in the output directory"
	case job.KindEmptyInput:
		return "no speech was recognized; verify the audio track and language"
	default:
		return "see logs for details"
	}
}
