// Shared rapid generators for property-based tests. All e2e tests
// should use these generators instead of defining their own.
package testutil

import "pgregory.net/rapid"

// NameGenerator generates display names.
func NameGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Z][a-z]{2,10} [A-Z][a-z]{2,10}`)
}

// EmailGenerator generates valid email addresses for testing.
func EmailGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z]{5,10}@example\.com`)
}

// TokenGenerator generates bearer-token-shaped strings.
func TokenGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Za-z0-9_-]{8,40}`)
}

// HeaderNameGenerator generates X- header names already in canonical MIME
// form, so names survive the wire round trip byte for byte.
func HeaderNameGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`X-[A-Z][a-z]{2,8}`)
}

// HeaderValueGenerator generates simple header values.
func HeaderValueGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-zA-Z0-9]{1,12}`)
}

// QueryKeyGenerator generates query parameter keys.
func QueryKeyGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z]{1,8}`)
}

// QueryValueGenerator generates query parameter values, including characters
// that require percent-encoding.
func QueryValueGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-zA-Z0-9 /&?=+%]{0,12}`)
}
