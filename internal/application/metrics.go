package application

import "time"

// Metrics is what services report; middleware.Metrics implements it.
type Metrics interface {
	ReportGenerated(tier string)
	ObserveLLM(provider string, d time.Duration, err error)
	SyncFailed(op string)
	WebhookEvent(source, outcome string)
}

// NopMetrics drops everything. Useful in tests and the admin CLI.
type NopMetrics struct{}

func (NopMetrics) ReportGenerated(string)                  {}
func (NopMetrics) ObserveLLM(string, time.Duration, error) {}
func (NopMetrics) SyncFailed(string)                       {}
func (NopMetrics) WebhookEvent(string, string)             {}
