package models

import "errors"

// Error taxonomy for the carrier pipeline. Kinds, not types -- callers
// compare with errors.Is against these sentinels, the same pattern the
// teacher's models/error.go used for its own error set.
var (
	// ErrCapacity means the payload does not fit the carrier at the chosen
	// LSB density. Image embeds return it before writing any output. Video
	// embeds check the declared frame count up front, but can also return
	// it after frames have been handed to the sink, when the source runs out
	// of frames before the whole payload is embedded.
	ErrCapacity = errors.New("stegovid: payload does not fit in carrier at this LSB density")

	// ErrBadMagic means MAGIC was not found during extraction: wrong
	// artifact, wrong LSB, or corruption.
	ErrBadMagic = errors.New("stegovid: magic header not found in carrier")

	// ErrBadAuth means the AES-GCM tag failed to verify: wrong password or
	// a tampered artifact.
	ErrBadAuth = errors.New("stegovid: authentication failed, wrong password or tampered data")

	// ErrTruncated means the artifact ended before the declared payload
	// length was satisfied.
	ErrTruncated = errors.New("stegovid: carrier ended before payload was fully read")

	// ErrMalformed means lengths in the header, salt, or inner frame are
	// inconsistent.
	ErrMalformed = errors.New("stegovid: malformed payload layout")

	// ErrEccUnavailable means the caller asked for ECC but no codec is
	// available for the requested parameters.
	ErrEccUnavailable = errors.New("stegovid: reed-solomon codec unavailable for requested parameters")

	// ErrEccDecode means the ECC codec could not correct the observed
	// errors.
	ErrEccDecode = errors.New("stegovid: reed-solomon could not correct observed errors")

	// ErrVerifyFailed means the post-embed verification pass could not
	// recover MAGIC from the freshly written video artifact.
	ErrVerifyFailed = errors.New("stegovid: verification failed, encoder path did not preserve per-pixel bytes")

	// ErrIO wraps underlying decoder/encoder/file I/O failures.
	ErrIO = errors.New("stegovid: I/O failure")
)
