package domain

import "time"

// UsageRecord counts consumption of one feature in one billing period.
type UsageRecord struct {
	OrganizationID int64
	FeatureKey     string
	UsageCount     int64
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

// FeatureUsage is one line of the usage report.
type FeatureUsage struct {
	Feature     string    `json:"feature"`
	Limit       int64     `json:"limit"`
	Used        int64     `json:"used"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}
