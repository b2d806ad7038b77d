package params

import (
	"fmt"
	"sort"
	"sync"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/logger"
	"github.com/samber/lo"
)

// Token identifies one assignment of a parameter. Every Set returns a token
// distinct from all earlier tokens for that name.
type Token struct {
	name string
	seq  uint64
}

func (t Token) String() string { return fmt.Sprintf("%s#%d", t.name, t.seq) }

// Change describes a parameter assignment that altered its value.
type Change struct {
	Name  string
	Old   any
	New   any
	Token Token
}

// Store maps parameter names to values. Mutation replaces a single entry at a
// time so change detection stays exact.
type Store struct {
	mu     sync.RWMutex
	defs   map[string]Parameter
	values map[string]any
	tokens map[string]Token
	seq    uint64
	subs   []func(Change)
	log    logger.Logger
}

// NewStore declares params with their defaults.
func NewStore(log logger.Logger, params ...Parameter) (*Store, error) {
	s := &Store{
		defs:   make(map[string]Parameter),
		values: make(map[string]any),
		tokens: make(map[string]Token),
		log:    logger.OrNop(log),
	}
	for _, p := range params {
		if err := s.Declare(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Declare registers p and assigns its default. Redeclaring a name replaces
// the definition and resets the value to the new default.
func (s *Store) Declare(p Parameter) error {
	if p.Name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}

	value, err := p.normalize(p.Default)
	if err != nil {
		return fmt.Errorf("invalid default: %w", err)
	}

	s.mu.Lock()
	s.defs[p.Name] = p
	s.values[p.Name] = value
	s.tokens[p.Name] = s.nextToken(p.Name)
	s.mu.Unlock()
	return nil
}

// Get returns the current value of name.
func (s *Store) Get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[name]
	if !ok {
		return nil, &core.UnknownParameterError{Name: name}
	}
	return v, nil
}

// Set validates value against the declared domain and replaces the entry.
// On a domain violation the store keeps its previous value.
func (s *Store) Set(name string, value any) (Token, error) {
	s.mu.Lock()
	def, ok := s.defs[name]
	if !ok {
		s.mu.Unlock()
		return Token{}, &core.UnknownParameterError{Name: name}
	}

	normalized, err := def.normalize(value)
	if err != nil {
		s.mu.Unlock()
		s.log.WithField("parameter", name).Warn(err)
		return Token{}, err
	}

	old := s.values[name]
	s.values[name] = normalized
	token := s.nextToken(name)
	s.tokens[name] = token
	subs := append([]func(Change){}, s.subs...)
	s.mu.Unlock()

	if old == normalized {
		return token, nil
	}

	s.log.WithFields(map[string]any{
		"parameter": name,
		"old":       old,
		"new":       normalized,
		"token":     token.String(),
	}).Debug("parameter changed")

	change := Change{Name: name, Old: old, New: normalized, Token: token}
	for _, fn := range subs {
		fn(change)
	}
	return token, nil
}

// Token returns the token of the latest assignment of name.
func (s *Store) Token(name string) (Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[name]
	if !ok {
		return Token{}, &core.UnknownParameterError{Name: name}
	}
	return t, nil
}

// Snapshot captures the current values of names. Undeclared names are
// recorded as absent, so they still take part in equality.
func (s *Store) Snapshot(names ...string) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[string]any, len(names))
	for _, name := range names {
		if v, ok := s.values[name]; ok {
			values[name] = v
		}
	}
	return newSnapshot(lo.Uniq(names), values)
}

// All snapshots every declared parameter.
func (s *Store) All() Snapshot {
	return s.Snapshot(s.Names()...)
}

// Names returns every declared parameter name, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	names := lo.Keys(s.defs)
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Definition returns the declaration of name.
func (s *Store) Definition(name string) (Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.defs[name]
	if !ok {
		return Parameter{}, &core.UnknownParameterError{Name: name}
	}
	return def, nil
}

// Subscribe registers fn to run after every value-changing Set, on the
// caller's goroutine.
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) nextToken(name string) Token {
	s.seq++
	return Token{name: name, seq: s.seq}
}
