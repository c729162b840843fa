package utils

// AssertType narrows from to T, returning an unexpected type error naming both types when it
// is not one.
func AssertType[T any](from interface{}) (T, error) {
	if asserted, ok := from.(T); ok {
		return asserted, nil
	}
	var zero T
	return zero, NewUnexpectedTypeError[T](from)
}
