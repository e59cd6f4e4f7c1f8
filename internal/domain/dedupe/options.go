package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*ringDeduper)

// WithMaxSize sets how many feedback event IDs are remembered.
// When full, the oldest ID is forgotten. Zero or negative means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		d.maxSize = maxSize
	}
}
