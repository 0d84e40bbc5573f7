package helpers

// Ptr returns a pointer to a copy of val. Handy for optional query and
// request fields.
func Ptr[T any](val T) *T {
	return &val
}

// ValueOr returns *val, or fallback when val is nil. Used to overlay optional
// request fields on stored or configured values.
func ValueOr[T any](val *T, fallback T) T {
	if val == nil {
		return fallback
	}
	return *val
}
