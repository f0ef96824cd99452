package discovery

import (
	"math/rand"
	"sync"
	"time"
)

// Strategy names accepted in configuration.
const (
	StrategyRoundRobin = "round_robin"
	StrategyRandom     = "random"
	StrategyLeastConn  = "least_conn"
	StrategyFastest    = "fastest_response"
)

// Strategy selects one instance from a set of healthy candidates. Pick is a
// pure selection: the caller guarantees candidates is non-empty and handles
// the zero-candidate case itself.
type Strategy interface {
	Pick(candidates []ServiceInstance) ServiceInstance
	Name() string
}

// StrategyFor returns the strategy registered under name. Unrecognized names
// fall back to random.
func StrategyFor(name string) Strategy {
	switch name {
	case StrategyRoundRobin:
		return roundRobinStrategy{}
	case StrategyLeastConn:
		return leastConnStrategy{}
	case StrategyFastest:
		return fastestStrategy{}
	default:
		return newRandomStrategy()
	}
}

// KnownStrategy reports whether name maps to a strategy without falling back.
func KnownStrategy(name string) bool {
	switch name {
	case StrategyRoundRobin, StrategyRandom, StrategyLeastConn, StrategyFastest:
		return true
	}
	return false
}

// roundRobinStrategy rotates by wall clock: the index is the current unix
// second modulo the candidate count, so every call within the same second
// returns the same instance. It is deliberately not a per-call counter.
type roundRobinStrategy struct{}

func (roundRobinStrategy) Pick(candidates []ServiceInstance) ServiceInstance {
	idx := time.Now().Unix() % int64(len(candidates))
	return candidates[idx]
}

func (roundRobinStrategy) Name() string { return StrategyRoundRobin }

type randomStrategy struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newRandomStrategy() *randomStrategy {
	return &randomStrategy{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *randomStrategy) Pick(candidates []ServiceInstance) ServiceInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return candidates[s.r.Intn(len(candidates))]
}

func (s *randomStrategy) Name() string { return StrategyRandom }

// leastConnStrategy picks the instance with the smallest failure count, a
// proxy for connection pressure. Ties go to the first-encountered candidate.
type leastConnStrategy struct{}

func (leastConnStrategy) Pick(candidates []ServiceInstance) ServiceInstance {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.FailureCount < best.FailureCount {
			best = c
		}
	}
	return best
}

func (leastConnStrategy) Name() string { return StrategyLeastConn }

// fastestStrategy picks the instance with the smallest latest probe latency.
// Ties go to the first-encountered candidate.
type fastestStrategy struct{}

func (fastestStrategy) Pick(candidates []ServiceInstance) ServiceInstance {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.ResponseTime < best.ResponseTime {
			best = c
		}
	}
	return best
}

func (fastestStrategy) Name() string { return StrategyFastest }
