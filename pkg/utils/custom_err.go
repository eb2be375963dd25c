package utils

import "errors"

var (
	ErrBadInput         = errors.New("bad input")
	ErrImageMissing     = errors.New("image payload missing")
	ErrImageNotBase64   = errors.New("image payload is not valid base64")
	ErrImageUndecodable = errors.New("image payload is not a recognizable image")
	ErrImageTooLarge    = errors.New("image payload too large")
	ErrTextUnsupported  = errors.New("text queries are not supported by the configured encoder")

	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrIndexBuildInProgress  = errors.New("index build already in progress")
	ErrIndexBuildFailed      = errors.New("index build failed")

	ErrDatabaseError      = errors.New("database error")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
