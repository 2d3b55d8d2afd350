package tts

import "errors"

// Common errors for the TTS subsystem.
var (
	// Engine errors
	ErrEngineNotLoaded = errors.New("TTS engine model is not loaded")
	ErrEngineClosed    = errors.New("TTS engine has been closed")
	ErrUnknownEngine   = errors.New("unknown TTS engine")
	ErrVoiceNotFound   = errors.New("requested voice not found")
	ErrSynthesisFailed = errors.New("audio synthesis failed")

	// Input errors
	ErrEmptyText   = errors.New("text cannot be empty")
	ErrTextTooLong = errors.New("text exceeds engine limit")
	ErrNoChunks    = errors.New("no synthesizable chunks in text")

	// Audio errors
	ErrSampleRateMismatch = errors.New("audio format mismatch")

	// State errors
	ErrInvalidTransition = errors.New("invalid state transition")
)

// IsRecoverable reports whether a run can continue with the next job
// after encountering err. Engine-level failures poison the whole run;
// everything else is scoped to the job that produced it.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, ErrEngineNotLoaded),
		errors.Is(err, ErrEngineClosed),
		errors.Is(err, ErrUnknownEngine):
		return false
	}
	return true
}
