package service

import (
	"errors"

	"eventgallery/server/gallery/repository"
)

var (
	ErrNotFound           = repository.ErrNotFound
	ErrConflict           = repository.ErrConflict
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
	ErrFileTooLarge       = errors.New("file too large")
	ErrNoFiles            = errors.New("no files")
)
