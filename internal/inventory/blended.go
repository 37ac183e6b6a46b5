package inventory

// Blended is one target's fully inherited and overridden attribute
// set, flattened the way the store's blender emits it: scalar keys,
// list keys, a nested kernel_options mapping, an interfaces mapping,
// and per-interface flat keys (ip_address_<iface>, netmask_<iface>,
// mac_address_<iface>, interface_master_<iface>).
//
// The engine treats Blended as immutable input; steps that consume
// override keys track them in a separate set instead of mutating the
// map.
type Blended map[string]interface{}

// GetString returns the value for key as a string, or "" if the key
// is absent or not a string.
func (b Blended) GetString(key string) string {
	if v, ok := b[key].(string); ok {
		return v
	}
	return ""
}

// GetStringList returns the value for key as a list of strings. A
// scalar string value becomes a one-element list.
func (b Blended) GetStringList(key string) []string {
	switch v := b[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// KernelOptions returns the kernel_options sub-mapping. The returned
// map is the blended one, not a copy; callers must not mutate it.
func (b Blended) KernelOptions() (map[string]interface{}, bool) {
	v, ok := b["kernel_options"].(map[string]interface{})
	return v, ok
}

// Interfaces returns the per-interface records carried in the blend,
// or nil for targets without any (profiles, interface-less systems).
func (b Blended) Interfaces() map[string]Interface {
	switch v := b["interfaces"].(type) {
	case map[string]Interface:
		return v
	}
	return nil
}

// Copy returns a shallow copy with its own kernel_options map, so a
// caller may overlay values without touching the blend it was given.
func (b Blended) Copy() Blended {
	out := make(Blended, len(b))
	for k, v := range b {
		out[k] = v
	}
	if kopts, ok := b.KernelOptions(); ok {
		koptsCopy := make(map[string]interface{}, len(kopts))
		for k, v := range kopts {
			koptsCopy[k] = v
		}
		out["kernel_options"] = koptsCopy
	}
	return out
}
