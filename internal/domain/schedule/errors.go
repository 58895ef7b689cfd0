package schedule

import "errors"

var (
	ErrShiftTypeNotFound = errors.New("shift type not found")
	ErrPayPeriodNotFound = errors.New("pay period not found")
	ErrSiteNotFound      = errors.New("site not found")
)
