package documents

import "errors"

var (
	ErrNotFound    = errors.New("document not found")
	ErrExists      = errors.New("document already exists")
	ErrNoFile      = errors.New("no file provided")
	ErrNoDocuments = errors.New("no spreadsheet documents uploaded")
)
