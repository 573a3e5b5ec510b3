package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrBatchRunning       = errors.New("a batch run is already in progress")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrAnalysisFailed     = errors.New("analysis failed")
	ErrCompanyMerged      = errors.New("company record was merged and is inactive")
	ErrInvalidExecContext = errors.New("invalid SQL execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
