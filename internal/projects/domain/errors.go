package domain

import "errors"

var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrDocumentTypeNotFound = errors.New("document type not found")
	ErrReferenceNotFound    = errors.New("reference row not found")
	ErrShippingNotFound     = errors.New("shipping profile not found")
)
