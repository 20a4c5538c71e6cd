package domain

import "errors"

var (
	ErrInvalidRound       = errors.New("invalid round")
	ErrDuplicateRound     = errors.New("round name already exists")
	ErrRoundNotFound      = errors.New("round not found")
	ErrRoundInUse         = errors.New("round still has competitors")
	ErrCompetitorNotFound = errors.New("competitor not found")
	ErrCrossSizeReorder   = errors.New("cannot reorder across rounds or size classes")
	ErrInvalidOrder       = errors.New("order does not match group members")
	ErrInvalidCourseTime  = errors.New("invalid course time")
	ErrInvalidScore       = errors.New("invalid score")
	ErrInvalidCompetitor  = errors.New("invalid competitor")
	ErrInvalidImport      = errors.New("invalid import")
	ErrIncompatibleState  = errors.New("persisted state has an incompatible shape")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session code already in use")
	ErrSyncDisabled    = errors.New("sync backend not configured")
	ErrNotHost         = errors.New("device is not allowed to host sessions")
)
