package value

// Copy returns a deep copy of v. Links and Refs are shared: they are never
// modified in place, only replaced.
func Copy(v Value) Value {
	switch node := v.(type) {
	case *Object:
		return node.DeepClone()
	case *Array:
		out := &Array{Items: make([]Value, len(node.Items))}
		for i, item := range node.Items {
			out.Items[i] = Copy(item)
		}
		return out
	default:
		return v
	}
}

// DeepClone returns a copy of o that shares no objects or arrays with it.
func (o *Object) DeepClone() *Object {
	c := &Object{
		keys:   append([]string(nil), o.keys...),
		fields: make(map[string]Value, len(o.fields)),
	}
	for k, v := range o.fields {
		c.fields[k] = Copy(v)
	}
	return c
}

// KeepUnknown carries the parts of raw that a typed view did not model over
// to out, the encoding of that view after it may have changed.
//
// known is the encoding of the unchanged view, so a key present in raw but
// missing from known was never seen by the view and is copied to out. Keys
// the view knows follow out, which includes removing them. Objects are
// merged key by key; array elements are paired by their "id" when they have
// one, else by position. out is modified and returned.
func KeepUnknown(raw, known, out Value) Value {
	if raw == known {
		return out
	}
	switch o := out.(type) {
	case *Object:
		r, ok1 := raw.(*Object)
		k, ok2 := known.(*Object)
		if !ok1 || !ok2 {
			return out
		}
		for _, key := range r.keys {
			rv := r.fields[key]
			kv, seen := k.fields[key]
			if !seen {
				if _, set := o.fields[key]; !set {
					o.Set(key, Copy(rv))
				}
				continue
			}
			if ov, ok := o.fields[key]; ok {
				o.fields[key] = KeepUnknown(rv, kv, ov)
			}
		}
		return o
	case *Array:
		r, ok1 := raw.(*Array)
		k, ok2 := known.(*Array)
		if !ok1 || !ok2 || len(r.Items) != len(k.Items) {
			return out
		}
		for i, ov := range o.Items {
			j := pairIndex(k, ov, i)
			if j < 0 {
				continue
			}
			o.Items[i] = KeepUnknown(r.Items[j], k.Items[j], ov)
		}
		return o
	default:
		return out
	}
}

// pairIndex finds the element of known that item descends from.
func pairIndex(known *Array, item Value, pos int) int {
	if obj, ok := item.(*Object); ok {
		if id := obj.Str("id"); id != "" {
			for j, kv := range known.Items {
				if ko, ok := kv.(*Object); ok && ko.Str("id") == id {
					return j
				}
			}
			return -1
		}
	}
	if pos < len(known.Items) {
		return pos
	}
	return -1
}
