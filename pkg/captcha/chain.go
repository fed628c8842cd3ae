package captcha

// As finds the first value of type T in the decorator chain starting at c.
// Decorators expose the value they wrap through an Unwrap() Interface method.
func As[T any](c Interface) (T, bool) {
	for c != nil {
		if v, ok := c.(T); ok {
			return v, true
		}

		u, ok := c.(interface{ Unwrap() Interface })
		if !ok {
			break
		}

		c = u.Unwrap()
	}

	var zero T
	return zero, false
}
