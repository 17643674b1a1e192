package feedcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// Hit: the value was served from the provider.
	Hit(storageKey string)

	// Miss: compute is about to run for the key.
	Miss(storageKey string)

	// ComputeFailed: compute returned err; nothing was written.
	ComputeFailed(storageKey string, err error)

	// A stored entry could not be decoded and was deleted.
	// reason ∈ {"corrupt", "codec_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                  {}
func (NopHooks) Miss(string)                 {}
func (NopHooks) ComputeFailed(string, error) {}
func (NopHooks) SelfHeal(string, string)     {}
func (NopHooks) ProviderSetRejected(string)  {}
