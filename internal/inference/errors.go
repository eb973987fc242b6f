package inference

import "errors"

var (
	// ErrInvalidConfiguration reports sampling or stop-pattern settings
	// rejected before a generation run starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrGenerationFailed reports a fatal model-host failure mid-run.
	// Snapshots yielded before the failure remain valid; the run itself
	// cannot be resumed.
	ErrGenerationFailed = errors.New("generation failed")
)
