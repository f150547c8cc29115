package game

// registry は挿入順を保持するマップです。当たり判定の優先順位は挿入順で決まります。
type registry[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

func newRegistry[K comparable, V any]() *registry[K, V] {
	return &registry[K, V]{values: make(map[K]V)}
}

func (r *registry[K, V]) Get(k K) (V, bool) {
	v, ok := r.values[k]
	return v, ok
}

func (r *registry[K, V]) Set(k K, v V) {
	if _, ok := r.values[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.values[k] = v
}

func (r *registry[K, V]) Delete(k K) {
	if _, ok := r.values[k]; !ok {
		return
	}
	delete(r.values, k)
	for i, key := range r.keys {
		if key == k {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

func (r *registry[K, V]) Len() int {
	return len(r.keys)
}

// Values は挿入順の値のスライスを返します。走査中に Delete しても安全です。
func (r *registry[K, V]) Values() []V {
	out := make([]V, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.values[k])
	}
	return out
}
