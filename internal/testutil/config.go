package testutil

import "os"

const (
	// TestEbayAppID names the env var holding a live eBay app ID for
	// integration-style tests. Unset, tests use the default fake key and
	// stay offline.
	TestEbayAppID = "TEST_EBAY_APP_ID"

	// DefaultTestKey is used when no live credential is configured.
	DefaultTestKey = "test-key"
)

// GetTestEbayAppID returns the configured test app ID, or the offline
// default.
func GetTestEbayAppID() string {
	if v := os.Getenv(TestEbayAppID); v != "" {
		return v
	}
	return DefaultTestKey
}
