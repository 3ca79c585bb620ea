package discovery

//go:generate mockgen -destination=../mock/discovery/mock_discovery.go -package=mock_discovery . Discoverer

// Discoverer interface for finding the path MTU to a single destination
type Discoverer interface {
	Discover(req Request) (*Result, error)
}
