package feedsim

import "time"

// Defaults used when a Config field is zero.
const (
	DefaultReadings = 48
	DefaultInterval = 5 * time.Minute
	DefaultMeanRate = 80
	DefaultWindow   = 60 * time.Minute
	DefaultWorkers  = 4
	DefaultTimeout  = 30 * time.Second
)

// Reading statuses reported by the server.
const (
	statusNormal  = "normal"
	statusSlow    = "slow"
	statusUnknown = "unknown"
)

// jitterDivisor bounds normal-step jitter to a tenth of the mean rate.
const jitterDivisor = 10

// PercentageMultiplier converts ratios for reporting.
const PercentageMultiplier = 100
