package domain

import "errors"

var (
	// ErrNotAuthenticated is returned when no valid session token accompanies a request.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidCredentials is returned when a login attempt fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when a username is already registered.
	ErrUserExists = errors.New("username already taken")
	// ErrUserNotFound indicates the user account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrRoomNotFound indicates the room PIN does not match an open room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomStarted is returned when joining a room whose game already began.
	ErrRoomStarted = errors.New("game already started")
	// ErrNotCreator is returned when a non-creator attempts a creator-only operation.
	ErrNotCreator = errors.New("only the room creator may do that")
	// ErrExamNotFound indicates the exam content could not be loaded.
	ErrExamNotFound = errors.New("exam not found")
	// ErrNotOwner is returned when a user modifies an exam they do not own.
	ErrNotOwner = errors.New("exam belongs to another user")
)
