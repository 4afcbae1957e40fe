package provider

import "errors"

// Error taxonomy for the submit/poll protocol. All errors returned by
// Submit and Poll wrap one of these sentinels so callers can classify with
// errors.Is instead of matching message strings.
var (
	// ErrSubmission: the creation call yielded no extractable task id, or
	// the provider signalled a non-success code on submission.
	ErrSubmission = errors.New("task submission failed")

	// ErrProvider: explicit provider-level error code on a status poll.
	// Fatal; the task will never complete.
	ErrProvider = errors.New("provider error")

	// ErrTaskFailed: the provider reported the task itself as failed.
	ErrTaskFailed = errors.New("task failed")

	// ErrMalformedResponse: the provider flagged success but none of the
	// known response shapes produced a result.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrPollTimeout: the attempt budget was exhausted without ever
	// observing a success or failure signal.
	ErrPollTimeout = errors.New("poll timeout")
)

// IsFatal reports whether err is a provider-reported failure that must not
// be retried. Transient conditions (network errors, unknown statuses) never
// surface as errors from the poll loop; they are absorbed as "still
// pending" attempts.
func IsFatal(err error) bool {
	return errors.Is(err, ErrProvider) ||
		errors.Is(err, ErrTaskFailed) ||
		errors.Is(err, ErrMalformedResponse)
}
