package keymap

import (
	"slices"
	"strings"
)

// Resolver looks up the action bound to a key press.
type Resolver struct {
	bindings []Binding
	byKey    map[string]Action
}

// NewResolver indexes bindings by key. A key bound twice resolves to the
// later binding.
func NewResolver(bindings []Binding) *Resolver {
	r := &Resolver{bindings: bindings, byKey: make(map[string]Action)}
	for _, b := range bindings {
		for _, k := range b.Keys {
			r.byKey[k] = b.Action
		}
	}
	return r
}

// Resolve returns the action bound to key, or "" if none.
func (r *Resolver) Resolve(key string) Action {
	return r.byKey[key]
}

// KeysFor returns the keys that resolve to action, in binding order.
func (r *Resolver) KeysFor(action Action) []string {
	var keys []string
	for _, b := range r.bindings {
		if b.Action != action {
			continue
		}
		for _, k := range b.Keys {
			if r.byKey[k] == action && !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// Help renders one line listing the first key and description of each
// binding in the given contexts, or of every binding when none are given.
func (r *Resolver) Help(contexts ...string) string {
	var parts []string
	for _, b := range r.bindings {
		if len(contexts) > 0 && !slices.Contains(contexts, b.Context) {
			continue
		}
		keys := r.KeysFor(b.Action)
		if len(keys) == 0 {
			continue
		}
		parts = append(parts, displayKey(keys[0])+" "+strings.ToLower(b.Description))
	}
	return strings.Join(parts, " · ")
}
