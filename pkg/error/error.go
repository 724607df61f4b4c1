package error

// GenericError is the contract every typed application error satisfies so
// the REST recovery middleware can map it onto an HTTP response.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}
