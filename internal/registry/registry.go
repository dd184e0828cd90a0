// Package registry implements the fixed set of named, typed variables that
// peers read and write over the control protocol.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/jocoteles/ESP32WebSocketControl/internal/domain"
)

// ErrNotFound is returned when no variable matches a requested name.
var ErrNotFound = errors.New("variable not found")

// ErrInvalidType is returned when a candidate value cannot be coerced to
// the variable's declared type.
var ErrInvalidType = errors.New("value has incompatible type")

// ErrOutOfRange is returned when a coerced numeric value falls outside the
// variable's configured limits.
var ErrOutOfRange = errors.New("value outside configured limits")

// Registry holds the ordered, name-unique variable set. The set is fixed at
// construction: no variable is ever added or removed at runtime, only
// values change. All access is mutex-guarded because the dispatcher event
// loop and embedding applications may touch it from different goroutines.
type Registry struct {
	mu   sync.RWMutex
	vars []domain.Variable
}

// New builds a registry from the configured variables. It rejects duplicate
// names, limits on text variables, inverted limits, and initial values that
// violate their own limits.
func New(vars []domain.Variable) (*Registry, error) {
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if v.Name == "" {
			return nil, fmt.Errorf("variable with empty name")
		}
		if _, dup := seen[v.Name]; dup {
			return nil, fmt.Errorf("duplicate variable name %q", v.Name)
		}
		seen[v.Name] = struct{}{}

		if v.Value.Kind() != v.Kind {
			return nil, fmt.Errorf("variable %q: value kind %s does not match declared type %s",
				v.Name, v.Value.Kind(), v.Kind)
		}
		if v.HasLimits {
			if v.Kind == domain.KindText {
				return nil, fmt.Errorf("variable %q: limits are not valid for text variables", v.Name)
			}
			if v.Min > v.Max {
				return nil, fmt.Errorf("variable %q: min %g exceeds max %g", v.Name, v.Min, v.Max)
			}
			if cur := numeric(v.Value); cur < v.Min || cur > v.Max {
				return nil, fmt.Errorf("variable %q: initial value %g outside limits [%g, %g]",
					v.Name, cur, v.Min, v.Max)
			}
		}
	}

	return &Registry{vars: append([]domain.Variable(nil), vars...)}, nil
}

// Len reports the number of configured variables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vars)
}

// Find returns the index of the variable with the exact, case-sensitive
// name. Lookup is a linear scan; the registry holds at most a few dozen
// entries.
func (r *Registry) Find(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.vars {
		if r.vars[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// Name returns the variable name at index i.
func (r *Registry) Name(i int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vars[i].Name
}

// Get returns a snapshot of the current value at index i. The index must
// come from Find.
func (r *Registry) Get(i int) domain.Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vars[i].Value
}

// GetByName returns the current value of the named variable, or
// ErrNotFound when no variable matches.
func (r *Registry) GetByName(name string) (domain.Value, error) {
	i, ok := r.Find(name)
	if !ok {
		return domain.Value{}, ErrNotFound
	}
	return r.Get(i), nil
}

// SetByName validates and stores a candidate value on the named variable.
// It returns ErrNotFound for unknown names and otherwise follows Set.
func (r *Registry) SetByName(name string, candidate any) error {
	i, ok := r.Find(name)
	if !ok {
		return ErrNotFound
	}
	return r.Set(i, candidate)
}

// Set validates the candidate against the variable's declared type and
// limits, then replaces the stored value. On any error the stored value is
// unchanged. Coercion rules: Integer slots accept exactly integral numbers,
// Float slots accept any number, Text slots accept only strings. The range
// check runs after coercion succeeds.
func (r *Registry) Set(i int, candidate any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := &r.vars[i]
	switch v.Kind {
	case domain.KindInteger:
		n, ok := asInteger(candidate)
		if !ok {
			return ErrInvalidType
		}
		if v.HasLimits && (float64(n) < v.Min || float64(n) > v.Max) {
			return ErrOutOfRange
		}
		v.Value = domain.IntValue(n)

	case domain.KindFloat:
		f, ok := asFloat(candidate)
		if !ok {
			return ErrInvalidType
		}
		if v.HasLimits && (f < v.Min || f > v.Max) {
			return ErrOutOfRange
		}
		v.Value = domain.FloatValue(f)

	case domain.KindText:
		s, ok := candidate.(string)
		if !ok {
			return ErrInvalidType
		}
		v.Value = domain.TextValue(s)

	default:
		return ErrInvalidType
	}
	return nil
}

// Describe returns the enumeration snapshot for index i.
func (r *Registry) Describe(i int) domain.Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vars[i].Info()
}

// DescribeAll returns snapshots of every variable in configuration order.
func (r *Registry) DescribeAll() []domain.Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Info, len(r.vars))
	for i := range r.vars {
		out[i] = r.vars[i].Info()
	}
	return out
}

// asInteger coerces JSON-decoded and native numeric candidates to int64.
// Non-integral floats are rejected; integral floats (e.g. 200.0) pass.
func asInteger(candidate any) (int64, bool) {
	switch c := candidate.(type) {
	case json.Number:
		if n, err := c.Int64(); err == nil {
			return n, true
		}
		f, err := c.Float64()
		if err != nil {
			return 0, false
		}
		return integralFloat(f)
	case int:
		return int64(c), true
	case int64:
		return c, true
	case float64:
		return integralFloat(c)
	default:
		return 0, false
	}
}

func integralFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	// The comparison converts MaxInt64 to 1<<63, so every float at or
	// beyond the int64 boundary is rejected before the conversion below
	// could overflow.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// asFloat coerces JSON-decoded and native numeric candidates to float64.
// Integral values supplied to a float slot are accepted.
func asFloat(candidate any) (float64, bool) {
	switch c := candidate.(type) {
	case json.Number:
		f, err := c.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case int:
		return float64(c), true
	case int64:
		return float64(c), true
	case float64:
		return c, true
	default:
		return 0, false
	}
}

func numeric(v domain.Value) float64 {
	if v.Kind() == domain.KindInteger {
		return float64(v.Int())
	}
	return v.Float()
}
