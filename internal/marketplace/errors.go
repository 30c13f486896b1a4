package marketplace

import "errors"

const service = "sp-api"

// ReportNotAvailable is returned as report text while a feed has no result
// document yet. It is a state, not a failure.
const ReportNotAvailable = "not yet available"

var (
	// ErrRateLimited is returned once feed registration has used its retry
	// budget and is still being throttled.
	ErrRateLimited = errors.New("marketplace rate limit retries exhausted")

	// ErrPollBudgetExhausted is returned by WaitForFeed with the last observed
	// status when the feed is still processing.
	ErrPollBudgetExhausted = errors.New("feed still processing after poll budget")

	ErrUnknownStatus = errors.New("unknown feed processing status")
)
