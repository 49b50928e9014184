package annotation

import (
	"errors"
	"fmt"
)

var errEmptyReply = errors.New("annotation reply contained no choices")

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("annotation API returned status %d", e.code)
}

func errStatus(code int) error {
	return statusError{code: code}
}
