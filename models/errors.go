package models

import "errors"

// Sentinel errors surfaced by the service layer. Handlers translate these
// to HTTP status codes; anything else is an internal error.
var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrParentTaskNotFound  = errors.New("parent task not found")
	ErrDependencyNotFound  = errors.New("dependency not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidAssignee     = errors.New("one or more assignees not found")
	ErrSelfDependency      = errors.New("a task cannot depend on itself")
	ErrDuplicateDependency = errors.New("dependency already exists")
	ErrDependencyCycle     = errors.New("cannot add dependency: cycle detected")
	ErrForbidden           = errors.New("not authorized to perform this action")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUsernameTaken       = errors.New("user with username already exists")
	ErrEmailTaken          = errors.New("user with email already exists")
)
