package discovery

// searchState binary search cursor over probe sizes
type searchState struct {
	lower    int
	upper    int
	current  int
	best     int
	known    bool
	maxTries int
	retries  int
}

func newSearchState(lower, upper, maxTries int) *searchState {
	return &searchState{
		lower:    lower,
		upper:    upper,
		maxTries: maxTries,
		retries:  maxTries,
	}
}

func (s *searchState) active() bool {
	return s.lower <= s.upper
}

func (s *searchState) next() int {
	s.current = (s.lower + s.upper) / 2
	return s.current
}

// confirm records a genuine reply at the current size
func (s *searchState) confirm() {
	if !s.known || s.current > s.best {
		s.best = s.current
		s.known = true
	}

	s.lower = s.current + 1
	s.retries = s.maxTries
}

// reject declares the current size unusable
func (s *searchState) reject() {
	s.upper = s.current - 1
	s.retries = s.maxTries
}

// timeout consumes a retry and rejects the size once none remain,
// reporting whether the bracket moved
func (s *searchState) timeout() bool {
	s.retries--

	if s.retries > 0 {
		return false
	}

	s.reject()

	return true
}

func (s *searchState) attempt() int {
	return s.maxTries - s.retries + 1
}

func (s *searchState) result() (int, bool) {
	return s.best, s.known
}
