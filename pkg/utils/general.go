package utils

// PanicIfNeeded panics on a non-nil error so the REST recovery middleware
// can translate it into an HTTP response. An optional message overrides the
// error text.
func PanicIfNeeded(err any, message ...string) {
	if err != nil {
		if len(message) > 0 {
			panic(message[0])
		}
		panic(err)
	}
}
