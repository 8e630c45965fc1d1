package reqlog

import (
	"github.com/Station-Manager/errors"
	"github.com/go-playground/validator/v10"
	"sync"
)

var validate *validator.Validate
var once sync.Once

func validateOptions(opts *Options) error {
	const op errors.Op = "reqlog.validateOptions"
	if opts == nil {
		return errors.New(op).Msg(errMsgNilOptions)
	}

	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	if err := validate.Struct(opts); err != nil {
		return errors.New(op).Err(err).Msg(errMsgOptionsInvalid)
	}

	return nil
}
