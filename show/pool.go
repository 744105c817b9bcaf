package show

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PoolPolicy selects how a Pool picks its next member.
type PoolPolicy string

const (
	// PoolSequential plays members in order, wrapping at the end.
	PoolSequential PoolPolicy = "sequential"
	// PoolRandom picks a weighted random member each time.
	PoolRandom PoolPolicy = "random"
	// PoolRandomForceNext picks a weighted random member, never the previous one twice in a row.
	PoolRandomForceNext PoolPolicy = "random_force_next"
	// PoolRandomForceAll picks every member once before any member repeats.
	PoolRandomForceAll PoolPolicy = "random_force_all"
)

// PoolMember is a show in a pool with its selection weight.
type PoolMember struct {
	Show   string `json:"show" yaml:"show"`
	Weight int    `json:"weight" yaml:"weight"`
}

// ParsePoolMember parses "name" or "name|weight".
func ParsePoolMember(s string) (PoolMember, error) {
	name, weightStr, hasWeight := strings.Cut(s, "|")
	name = strings.TrimSpace(name)
	if name == "" {
		return PoolMember{}, fmt.Errorf("%w: %q has no show name", ErrInvalidPoolMember, s)
	}
	m := PoolMember{Show: name, Weight: 1}
	if hasWeight {
		w, err := strconv.Atoi(strings.TrimSpace(weightStr))
		if err != nil || w < 1 {
			return PoolMember{}, fmt.Errorf("%w: %q has invalid weight", ErrInvalidPoolMember, s)
		}
		m.Weight = w
	}
	return m, nil
}

// Pool is a named group of interchangeable shows. Membership is fixed at
// construction; selection state advances on every Select.
type Pool struct {
	name    string
	policy  PoolPolicy
	members []PoolMember

	mu        sync.Mutex
	rng       *rand.Rand
	next      int
	last      int
	remaining []int
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolRand sets the random source used by the random policies.
func WithPoolRand(r *rand.Rand) PoolOption {
	return func(p *Pool) {
		if r != nil {
			p.rng = r
		}
	}
}

// NewPool builds a pool. An empty member list is rejected with ErrEmptyPool.
func NewPool(name string, policy PoolPolicy, members []PoolMember, opts ...PoolOption) (*Pool, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: pool name is empty", ErrInvalidShowDefinition)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPool, name)
	}
	if policy == "" {
		policy = PoolSequential
	}
	switch policy {
	case PoolSequential, PoolRandom, PoolRandomForceNext, PoolRandomForceAll:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPoolPolicy, policy)
	}

	copied := make([]PoolMember, len(members))
	for i, m := range members {
		if m.Show == "" {
			return nil, fmt.Errorf("%w: pool %s member %d has no show name", ErrInvalidPoolMember, name, i+1)
		}
		if m.Weight <= 0 {
			m.Weight = 1
		}
		copied[i] = m
	}

	seed := uint64(time.Now().UnixNano())
	p := &Pool{
		name:    name,
		policy:  policy,
		members: copied,
		rng:     rand.New(rand.NewPCG(seed, seed>>1)),
		last:    -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Policy returns the selection policy.
func (p *Pool) Policy() PoolPolicy {
	return p.policy
}

// Members returns a copy of the member list.
func (p *Pool) Members() []PoolMember {
	out := make([]PoolMember, len(p.members))
	copy(out, p.members)
	return out
}

// Select returns the name of the next show to play.
func (p *Pool) Select() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.members) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyPool, p.name)
	}

	var idx int
	switch p.policy {
	case PoolRandom:
		idx = p.weighted(p.allIndexes())
	case PoolRandomForceNext:
		candidates := p.allIndexes()
		if len(candidates) > 1 && p.last >= 0 {
			candidates = append(candidates[:p.last], candidates[p.last+1:]...)
		}
		idx = p.weighted(candidates)
	case PoolRandomForceAll:
		if len(p.remaining) == 0 {
			p.remaining = p.allIndexes()
		}
		pick := p.weighted(p.remaining)
		for i, candidate := range p.remaining {
			if candidate == pick {
				p.remaining = append(p.remaining[:i], p.remaining[i+1:]...)
				break
			}
		}
		idx = pick
	default:
		idx = p.next
		p.next = (p.next + 1) % len(p.members)
	}

	p.last = idx
	return p.members[idx].Show, nil
}

func (p *Pool) allIndexes() []int {
	out := make([]int, len(p.members))
	for i := range out {
		out[i] = i
	}
	return out
}

func (p *Pool) weighted(candidates []int) int {
	total := 0
	for _, i := range candidates {
		total += p.members[i].Weight
	}
	n := p.rng.IntN(total)
	for _, i := range candidates {
		n -= p.members[i].Weight
		if n < 0 {
			return i
		}
	}
	return candidates[len(candidates)-1]
}
