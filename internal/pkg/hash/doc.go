// Package hash provides keyed digests for values that must be looked up
// without being stored in the clear, such as phone numbers used as cache keys.
package hash
