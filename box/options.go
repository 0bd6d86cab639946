package box

// Options configures a Store.
type Options struct {
	// Observers are subscribed when the store is created.
	Observers []Observer

	// Align is the alignment requested for headers and items.
	// It must be a power of two; zero selects the default.
	Align uint32
}

// DefaultOptions returns the default store configuration.
func DefaultOptions() Options {
	return Options{
		Align: 8,
	}
}
