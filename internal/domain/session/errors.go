package session

import "errors"

var (
	ErrIncorrectCredentials = errors.New("incorrect credentials")
	ErrLoginUnavailable     = errors.New("unable to log in, please try again")
	ErrNotAuthenticated     = errors.New("not authenticated")
)
