package services

import (
	"github.com/Dosada05/inmatch/models"
	"github.com/Dosada05/inmatch/realtime"
)

// EventPublisher доставляет события подключённым клиентам. Реализуется realtime.Hub.
type EventPublisher interface {
	PublishToMatch(matchID int, event string, payload interface{})
	PublishGlobal(event string, payload interface{})
}

// TaskTrigger asks the scheduler for an immediate run of a named task.
type TaskTrigger interface {
	Trigger(name string) bool
}

// Имена фоновых задач.
const (
	TaskKickoffWatch   = "kickoff-watch"
	TaskMatchRetention = "match-retention"
	TaskVideoSweep     = "video-sweep"
)

var _ EventPublisher = (*realtime.Hub)(nil)

type nopPublisher struct{}

func (nopPublisher) PublishToMatch(int, string, interface{}) {}
func (nopPublisher) PublishGlobal(string, interface{})       {}

type StatusEvent struct {
	MatchID int                `json:"matchId"`
	Status  models.MatchStatus `json:"status"`
}

type MatchDeletedEvent struct {
	MatchID int `json:"matchId"`
}
