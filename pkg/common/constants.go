package common

import "time"

const (
	DefaultLedgerSize = 50
	DefaultLedgerTTL  = 24 * time.Hour

	DefaultRapidWindow    = 10 * time.Second
	DefaultRapidThreshold = 5

	DefaultBruteForceWindow    = 15 * time.Minute
	DefaultBruteForceThreshold = 5
	DefaultBlockTTL            = 1 * time.Hour

	DefaultDataAccessPeriod    = 1 * time.Hour
	DefaultDataAccessThreshold = 50

	DefaultAlertTTL      = 24 * time.Hour
	DefaultAlertFeedSize = 100

	DefaultStoreTimeout = 250 * time.Millisecond
	DefaultStoreRetries = 10

	SessionIDHeader = "X-Session-Id"
	UserIDHeader    = "X-User-Id"
)
