package functions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/rulego/aggexec/types"
)

var (
	// ErrUnknownFunction is returned when a procedure name cannot be resolved.
	ErrUnknownFunction = errors.New("function does not exist")
	// ErrUnknownOperator is returned when no operator matches a name and operand types.
	ErrUnknownOperator = errors.New("operator does not exist")
)

// defaultProgramCacheSize bounds the number of compiled expressions kept per registry.
const defaultProgramCacheSize = 256

// Registry resolves procedure references and sort operators. Procedure
// names are unique and case-insensitive; overloads are not resolved here.
type Registry struct {
	mu        sync.RWMutex
	types     *types.Registry
	procs     map[string]*Proc
	operators map[string]*Operator
	programs  *lru.Cache
}

// NewRegistry creates an empty procedure registry over a type registry.
func NewRegistry(typeReg *types.Registry) *Registry {
	if typeReg == nil {
		typeReg = types.NewRegistry()
	}
	programs, _ := lru.New(defaultProgramCacheSize)
	return &Registry{
		types:     typeReg,
		procs:     make(map[string]*Proc),
		operators: make(map[string]*Operator),
		programs:  programs,
	}
}

// NewBuiltinRegistry creates a registry preloaded with the builtin
// transition, final, combine and serialization procedures and the
// comparison operators of the builtin scalar types.
func NewBuiltinRegistry(typeReg *types.Registry) *Registry {
	r := NewRegistry(typeReg)
	for _, p := range BuiltinProcs() {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	for _, op := range BuiltinOperators() {
		if err := r.RegisterOperator(op); err != nil {
			panic(err)
		}
	}
	return r
}

// Types returns the type registry procedures are resolved against.
func (r *Registry) Types() *types.Registry {
	return r.types
}

// Register adds a procedure. Every argument and return type must resolve.
func (r *Registry) Register(p *Proc) error {
	if p == nil || p.Name == "" {
		return errors.New("function name must not be empty")
	}
	for _, name := range append(append([]string(nil), p.ArgTypes...), p.RetType) {
		if _, err := r.types.Lookup(name); err != nil {
			return fmt.Errorf("function %s: %w", p.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(p.Name)
	if _, exists := r.procs[name]; exists {
		return fmt.Errorf("function %s already registered", name)
	}
	r.procs[name] = p
	return nil
}

// Get returns a procedure by name.
func (r *Registry) Get(name string) (*Proc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.procs[strings.ToLower(name)]
	return p, exists
}

// Lookup returns a procedure by name or ErrUnknownFunction.
func (r *Registry) Lookup(name string) (*Proc, error) {
	if p, ok := r.Get(name); ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
}

// ListAll returns a snapshot of all registered procedures.
func (r *Registry) ListAll() map[string]*Proc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Proc, len(r.procs))
	for name, p := range r.procs {
		result[name] = p
	}
	return result
}

// Names returns all procedure names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a procedure.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.ToLower(name)
	if _, exists := r.procs[name]; !exists {
		return false
	}
	delete(r.procs, name)
	return true
}

func operatorKey(name, left, right string) string {
	return name + "(" + types.Normalize(left) + "," + types.Normalize(right) + ")"
}

// RegisterOperator adds a comparison operator.
func (r *Registry) RegisterOperator(op *Operator) error {
	for _, name := range []string{op.Left, op.Right} {
		if _, err := r.types.Lookup(name); err != nil {
			return fmt.Errorf("operator %s: %w", op.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := operatorKey(op.Name, op.Left, op.Right)
	if _, exists := r.operators[key]; exists {
		return fmt.Errorf("operator %s already registered", key)
	}
	r.operators[key] = op
	return nil
}

// LookupOperator resolves an operator by name and operand types.
func (r *Registry) LookupOperator(name, left, right string) (*Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.operators[operatorKey(name, left, right)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, operatorKey(name, left, right))
	}
	return op, nil
}

// Operators returns all operators named name, for any operand types.
func (r *Registry) Operators(name string) []*Operator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ops []*Operator
	for _, op := range r.operators {
		if op.Name == name {
			ops = append(ops, op)
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Left < ops[j].Left })
	return ops
}
