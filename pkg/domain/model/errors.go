package model

import "github.com/m-mizutani/goerr/v2"

// ErrNotFound indicates a lookup by identity or natural key matched nothing.
// Repository implementations return it wrapped; boundary layers translate it
// to their own not-found convention.
var ErrNotFound = goerr.New("not found")
