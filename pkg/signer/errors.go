package signer

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySecret  = errors.New("signer: secret required")
	ErrInvalidToken = errors.New("signer: invalid token")

	// ErrExpired and ErrBadSignature both match ErrInvalidToken with errors.Is.
	ErrExpired      = fmt.Errorf("%w: token expired", ErrInvalidToken)
	ErrBadSignature = fmt.Errorf("%w: bad signature", ErrInvalidToken)
)
