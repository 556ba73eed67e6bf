package event

import (
	"collab-lab/domain"
)

// Name is the wire name of an outbound event.
type Name string

const (
	RoomCreatedName    Name = "room-created"
	UserJoinedName     Name = "user-joined"
	UserLeftName       Name = "user-left"
	ReceiveCodeName    Name = "receive-code"
	ReceiveCommentName Name = "receive-comment"
	CodeOutputName     Name = "code-output"
	FileSharedName     Name = "file-shared"
	ErrorName          Name = "error"
)

// DomainEvent is anything the coordinator delivers to a connection.
type DomainEvent interface {
	Name() Name
}

type RoomCreated struct {
	Room domain.RoomID
}

func (RoomCreated) Name() Name { return RoomCreatedName }

// PresenceChanged covers both user-joined and user-left.
type PresenceChanged struct {
	Member domain.MemberID
	Joined bool
}

func (p PresenceChanged) Name() Name {
	if p.Joined {
		return UserJoinedName
	}
	return UserLeftName
}

type CodeUpdated struct {
	Code string
}

func (CodeUpdated) Name() Name { return ReceiveCodeName }

type CommentPosted struct {
	Comment string
}

func (CommentPosted) Name() Name { return ReceiveCommentName }

type CodeOutput struct {
	Result domain.ExecutionResult
}

func (CodeOutput) Name() Name { return CodeOutputName }

type FileShared struct {
	FileName    string
	FileContent string
	MimeType    string
}

func (FileShared) Name() Name { return FileSharedName }

// ErrorRaised is always scoped to the connection that caused it.
type ErrorRaised struct {
	Message string
}

func (ErrorRaised) Name() Name { return ErrorName }
