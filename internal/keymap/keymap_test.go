package keymap

import "testing"

func TestAll_NoDuplicateKeys(t *testing.T) {
	seen := make(map[string]Action)
	for _, b := range All {
		if len(b.Keys) == 0 {
			t.Errorf("binding %q has no keys", b.Action)
		}
		if b.Description == "" {
			t.Errorf("binding %q has no description", b.Action)
		}
		for _, k := range b.Keys {
			if prev, ok := seen[k]; ok {
				t.Errorf("key %q bound to both %q and %q", k, prev, b.Action)
			}
			seen[k] = b.Action
		}
	}
}

func TestAll_KnownContexts(t *testing.T) {
	for _, b := range All {
		switch b.Context {
		case "global", "playback", "volume", "queue":
		default:
			t.Errorf("binding %q has context %q", b.Action, b.Context)
		}
	}
}
