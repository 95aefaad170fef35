package build

import "errors"

var (
	// ErrConfiguration is returned before any network call when the
	// repository credential is incomplete.
	ErrConfiguration   = errors.New("build: repository credential is incomplete")
	ErrBuildInProgress = errors.New("build: a build is already running")
	ErrPush            = errors.New("build: push failed")
	ErrPipelineFailed  = errors.New("build: pipeline run failed")
	ErrTimeout         = errors.New("build: timed out waiting for the artifact")
	ErrDownload        = errors.New("build: artifact download failed")
	ErrNotReady        = errors.New("build: no artifact available")
	ErrCanceled        = errors.New("build: canceled")
	ErrClosed          = errors.New("build: orchestrator closed")
)
