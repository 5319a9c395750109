package session

import (
	"github.com/rbright/baserah/internal/classifier"
	"github.com/rbright/baserah/internal/voice"
)

type eventKind int

const (
	eventClassified eventKind = iota + 1
	eventReset
	eventLocalChange
	eventRemotePush
	eventPreview
	eventSync
)

// event is one unit of work for the coordination goroutine. reply, when set,
// receives the snapshot after the event is applied.
type event struct {
	kind    eventKind
	result  classifier.Result
	profile *voice.Profile
	reply   chan Status
}
