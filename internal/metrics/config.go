package metrics

// Config
type Config struct {
	// Addr is the listen address of the metrics endpoint.
	Addr string

	// Path is the URL path the metrics are served on.
	Path string
}

// ServiceInfo labels the metrics reported by this instance.
type ServiceInfo struct {
	// Engine is the name of the conversion engine in use.
	Engine string
}
