package model

import "errors"

var (
	// ErrUnknownAllocationModel is returned for an allocation selector other
	// than occupied_area or utilization_factor.
	ErrUnknownAllocationModel = errors.New("unknown allocation model")

	// ErrInvalidSheet is returned for a sheet with negative dimensions or an
	// unrecognized mode.
	ErrInvalidSheet = errors.New("invalid sheet")

	// ErrUnknownSheetMode is returned alongside ErrInvalidSheet for a mode
	// other than fixed_sheet or cut_to_length.
	ErrUnknownSheetMode = errors.New("unknown sheet mode")
)
