package dhcpsvc

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
)

// errNilConfig is returned when a nil configuration is validated.
const errNilConfig errors.Error = "config is nil"

// newMustErr returns an error that indicates that valName must be as must
// describes.
func newMustErr(valName, must string, val fmt.Stringer) (err error) {
	return fmt.Errorf("%s %s must %s", valName, val, must)
}
