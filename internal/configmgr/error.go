package configmgr

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/timeutil"
	"golang.org/x/exp/constraints"
)

const (
	// errNoConf is returned when a nil configuration section is validated.
	errNoConf errors.Error = "configuration not found"

	// errNegative is wrapped by the errors about negative values.
	errNegative errors.Error = "negative value"
)

// numberOrDuration is the constraint for integer types along with
// timeutil.Duration.
type numberOrDuration interface {
	constraints.Integer | timeutil.Duration
}

// newErrNotPositive returns an error about the value that must be positive but
// isn't.  prop is the name of the property to mention in the error message.
func newErrNotPositive[T numberOrDuration](prop string, v T) (err error) {
	return fmt.Errorf("%s: %w, got %v", prop, errors.ErrNotPositive, v)
}

// newErrNegative returns an error about the value that must not be negative
// but is.  prop is the name of the property to mention in the error message.
func newErrNegative[T numberOrDuration](prop string, v T) (err error) {
	return fmt.Errorf("%s: %w, got %v", prop, errNegative, v)
}
