package domain

import "errors"

var (
	ErrDataUnavailable   = errors.New("interaction data unavailable")
	ErrAlgorithmNotFound = errors.New("algorithm not found")
	ErrModelNotFitted    = errors.New("model not fitted")
	ErrTrainingDataEmpty = errors.New("no qualifying interactions for training")
)
