package wdsession

import "strings"

// Verdict is the outcome of classifying a termination error.
type Verdict int

const (
	// Report surfaces the error to the operator as a warning.
	Report Verdict = iota
	// Suppress drops the error silently.
	Suppress
)

// KindUnknown is the backend error kind eligible for suppression. It is
// what WebDriver implementations report when the browser process is in an
// indeterminate state, including when it has already exited.
const KindUnknown = "unknown error"

// benignTerminationMessages are backend messages indicating the browser
// was already gone when termination was requested. The list is vendor
// knowledge, not logic: extend it as drivers change their wording.
// Matching is case-insensitive.
var benignTerminationMessages = []string{
	"error communicating with the remote browser",
}

// A Classifier decides whether an error raised while terminating the
// backend is reported or suppressed. It must be pure: same error, same
// verdict.
type Classifier func(err error) Verdict

// ClassifyTermination is the default Classifier. Terminating an external
// process is racy; the process may have exited before the request
// arrived. Only errors of KindUnknown whose message matches a known
// benign substring are suppressed. Everything else, including errors
// that are not *Error at all, is reported.
func ClassifyTermination(err error) Verdict {
	be, ok := err.(*Error)
	if !ok {
		return Report
	}
	if be.Kind != KindUnknown {
		return Report
	}
	msg := strings.ToLower(be.Message)
	for _, benign := range benignTerminationMessages {
		if strings.Contains(msg, benign) {
			return Suppress
		}
	}
	return Report
}
