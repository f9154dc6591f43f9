package application

import "errors"

var (
	// ErrInvalidInput is returned for requests that fail validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream marks a failure of a third-party dependency (LLM, Stripe, ActiveCampaign).
	ErrUpstream = errors.New("upstream service failed")
	// ErrForbidden means the caller has not paid for, or exhausted, the requested tier.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized is used for bad webhook signatures.
	ErrUnauthorized = errors.New("unauthorized")
)
