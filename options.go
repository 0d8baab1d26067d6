package raymarch

// Option configures a Master during creation.
//
// Example:
//
//	light := raymarch.NewDirectionalLight(raymarch.V3(-1, -2, -1), 1.2)
//	m := raymarch.New(backend, params, raymarch.WithLight(light))
type Option func(*Master)

// WithLight sets the directional light used for shading. The light can be
// replaced later with Master.SetLight.
func WithLight(l *DirectionalLight) Option {
	return func(m *Master) {
		m.light = l
	}
}

// SoftwareOption configures a SoftwareBackend.
type SoftwareOption func(*SoftwareBackend)

// WithWorkers sets the number of goroutines executing workgroups.
// Zero or negative means GOMAXPROCS.
//
// Example:
//
//	// Deterministic single-threaded rendering for debugging
//	b := raymarch.NewSoftwareBackend(raymarch.WithWorkers(1))
func WithWorkers(n int) SoftwareOption {
	return func(b *SoftwareBackend) {
		b.workers = n
	}
}
