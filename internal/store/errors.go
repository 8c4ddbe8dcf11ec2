package store

import "errors"

// ErrInsufficientStock is returned when a stock-out posting or a negative
// adjustment would take an item's stock below zero. The check happens as
// part of the UPDATE itself, so two concurrent postings can never jointly
// overdraw an item.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrItemNotFound is returned when a posting line names an item that does
// not exist or has been soft-deleted. Callers treat it as a client error,
// unlike infrastructure failures from the same posting.
var ErrItemNotFound = errors.New("item not found")
