package value

import "math"

// Table is the Lua table: a dense array part for small positive
// integer keys plus a hash part for everything else, following the
// teacher's split representation (types.go's stack/array helpers) but
// generalized to a real associative table instead of a VM register
// window.
type Table struct {
	array []Value // array[i] holds key i+1
	hash  map[Value]Value
	Meta  *Table
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// normalizeKey maps float keys with an exact integer value onto int64,
// so t[1] and t[1.0] name the same slot (Lua table key normalization).
func normalizeKey(k Value) Value {
	if f, ok := k.(float64); ok {
		if i, ok := FloatToInteger(f); ok {
			return i
		}
	}
	return k
}

// Get returns the raw value stored at k, or nil.
func (t *Table) Get(k Value) Value {
	k = normalizeKey(k)
	if i, ok := k.(int64); ok && i >= 1 && int(i) <= len(t.array) {
		return t.array[i-1]
	}
	if t.hash == nil {
		return nil
	}
	return t.hash[k]
}

// Set stores v at k, growing the array part when k extends it
// contiguously. Setting nil removes the key.
func (t *Table) Set(k Value, v Value) {
	k = normalizeKey(k)
	if i, ok := k.(int64); ok && i >= 1 {
		idx := int(i)
		if idx <= len(t.array) {
			t.array[idx-1] = v
			if v == nil && idx == len(t.array) {
				t.shrinkArray()
			}
			return
		}
		if idx == len(t.array)+1 && v != nil {
			t.array = append(t.array, v)
			t.migrateFromHash()
			return
		}
	}
	if v == nil {
		if t.hash != nil {
			delete(t.hash, k)
		}
		return
	}
	if t.hash == nil {
		t.hash = make(map[Value]Value)
	}
	t.hash[k] = v
}

func (t *Table) shrinkArray() {
	n := len(t.array)
	for n > 0 && t.array[n-1] == nil {
		n--
	}
	t.array = t.array[:n]
}

// migrateFromHash pulls any hash-part entries that now contiguously
// extend the array part after an append.
func (t *Table) migrateFromHash() {
	if t.hash == nil {
		return
	}
	for {
		next := int64(len(t.array) + 1)
		v, ok := t.hash[next]
		if !ok {
			return
		}
		t.array = append(t.array, v)
		delete(t.hash, next)
	}
}

// Len returns a border of t, per Lua's `#` semantics (spec Invariant 4):
// any n where t[n] ~= nil and t[n+1] == nil, or 0 if t[1] == nil.
func (t *Table) Len() int64 {
	n := len(t.array)
	for n > 0 && t.array[n-1] == nil {
		n--
	}
	if n == len(t.array) && t.hash != nil {
		// Array part is full; probe the hash part with a doubling search
		// for a border, matching the reference implementation's approach.
		i := int64(n)
		j := i + 1
		for t.hash[j] != nil {
			i = j
			if j > math.MaxInt64/2 {
				// Linear fallback to avoid overflow.
				for t.hash[i+1] != nil {
					i++
				}
				return i
			}
			j *= 2
		}
		for j-i > 1 {
			m := (i + j) / 2
			if t.hash[m] != nil {
				i = m
			} else {
				j = m
			}
		}
		return i
	}
	return int64(n)
}

// Next implements stateless iteration for `next`/`pairs`: given the
// previously returned key (or nil to start), returns the following
// key/value pair, or (nil, nil, true) at the end.
func (t *Table) Next(key Value) (nk, nv Value, ok bool) {
	// Array part first, in index order, then hash part in the sorted
	// order orderedHashKeys gives.
	keys := t.orderedHashKeys()
	if key == nil {
		if len(t.array) > 0 {
			for i, v := range t.array {
				if v != nil {
					return int64(i + 1), v, true
				}
			}
		}
		if len(keys) > 0 {
			return keys[0], t.hash[keys[0]], true
		}
		return nil, nil, true
	}
	key = normalizeKey(key)
	if i, isInt := key.(int64); isInt && i >= 1 && int(i) <= len(t.array) {
		for j := int(i); j < len(t.array); j++ {
			if t.array[j] != nil {
				return int64(j + 1), t.array[j], true
			}
		}
		if len(keys) > 0 {
			return keys[0], t.hash[keys[0]], true
		}
		return nil, nil, true
	}
	for idx, k := range keys {
		if RawEqual(k, key) {
			if idx+1 < len(keys) {
				return keys[idx+1], t.hash[keys[idx+1]], true
			}
			return nil, nil, true
		}
	}
	return nil, nil, false
}

// orderedHashKeys collects the hash part's keys and sorts them with
// SortableKeys, rebuilding the slice on every call so Next keeps no
// state between calls. The order does not match Lua's own, but it is
// the same on every call while the table is unchanged, so iteration
// visits every key exactly once.
func (t *Table) orderedHashKeys() []Value {
	if len(t.hash) == 0 {
		return nil
	}
	keys := make([]Value, 0, len(t.hash))
	for k := range t.hash {
		keys = append(keys, k)
	}
	SortableKeys(keys)
	return keys
}

// Insert and Remove implement table.insert/table.remove's shifting
// behavior directly against the array part when possible.
func (t *Table) Insert(pos int64, v Value) {
	n := t.Len()
	for i := n + 1; i > pos; i-- {
		t.Set(i, t.Get(i-1))
	}
	t.Set(pos, v)
}

func (t *Table) Remove(pos int64) Value {
	n := t.Len()
	v := t.Get(pos)
	for i := pos; i < n; i++ {
		t.Set(i, t.Get(i+1))
	}
	if pos <= n {
		t.Set(n, nil)
	}
	return v
}
