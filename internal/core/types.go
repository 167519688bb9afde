package core

import "dutyroster/pkg/domain"

type (
	RoomID         = domain.RoomID
	RoomSet        = domain.RoomSet
	SystemState    = domain.SystemState
	CleaningRecord = domain.CleaningRecord
	Snapshot       = domain.Snapshot
	RemoteDocument = domain.RemoteDocument
	ExportDocument = domain.ExportDocument
	Config         = domain.Config
	LocalStore     = domain.LocalStore
	RemoteStore    = domain.RemoteStore
)

var (
	ErrInvalidRoom        = domain.ErrInvalidRoom
	ErrAlreadyCompleted   = domain.ErrAlreadyCompleted
	ErrMalformedSnapshot  = domain.ErrMalformedSnapshot
	ErrDegenerateRotation = domain.ErrDegenerateRotation
	ErrRemoteUnavailable  = domain.ErrRemoteUnavailable
)
