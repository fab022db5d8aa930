package cache

// Value returns the cached value for key as T.
// A missing key or a value of another type returns the zero T and false.
func Value[T any](c *Client, key string) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Mutate atomically rewrites the value for key as T.
// fn receives the zero T and false when the key holds no T.
func Mutate[T any](c *Client, key string, fn func(old T, ok bool) T) {
	c.Update(key, func(old any, ok bool) any {
		t, isT := old.(T)
		return fn(t, ok && isT)
	})
}

// MutateExisting rewrites the value for key only when it already holds a T.
// It reports whether fn ran.
func MutateExisting[T any](c *Client, key string, fn func(old T) T) bool {
	ran := false
	c.UpdateExisting(key, func(old any) any {
		t, ok := old.(T)
		if !ok {
			return old
		}
		ran = true
		return fn(t)
	})
	return ran
}
