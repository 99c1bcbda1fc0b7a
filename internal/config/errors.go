package config

import "errors"

var (
	ErrReadConfig  = errors.New("config: failed to read configuration file")
	ErrParseConfig = errors.New("config: failed to parse configuration")
)
