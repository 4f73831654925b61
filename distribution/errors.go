package distribution

import "fmt"

// ConfigurationError indicates that a distribution was constructed
// with an invalid combination of parameters, e.g. both or neither of
// the two negative-binomial parameterizations. The call site must be
// fixed; retrying cannot succeed.
type ConfigurationError struct {
	msg string
}

func configErrorf(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string { return e.msg }

// DomainError indicates that a parameter or an observed value lies
// outside its mathematical domain, e.g. a negative mean, a
// non-integer count, or a zero-inflation probability of 1 or more.
type DomainError struct {
	msg string
}

func domainErrorf(format string, args ...interface{}) *DomainError {
	return &DomainError{msg: fmt.Sprintf(format, args...)}
}

func (e *DomainError) Error() string { return e.msg }
