package events

import "encoding/json"

// Kind is the closed set of push-channel event names. Routing is an
// exhaustive switch over this enum, so supporting a new backend event is a
// compile-time-checked change rather than a dynamic table entry.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnect
	KindConnectError
	KindDisconnect
	KindMessage
	KindSeries
	KindMovie
	KindEpisode
	KindEpisodeWanted
	KindMovieWanted
	KindSettings
	KindLanguages
	KindBadges
	KindMovieHistory
	KindEpisodeHistory
	KindMovieBlacklist
	KindEpisodeBlacklist
	KindResetEpisodeWanted
	KindResetMovieWanted
	KindTask
	KindJobs
)

// kindNames maps wire event names to kinds. The names are the backend's
// socket event vocabulary.
var kindNames = map[string]Kind{
	"connect":              KindConnect,
	"connect_error":        KindConnectError,
	"disconnect":           KindDisconnect,
	"message":              KindMessage,
	"series":               KindSeries,
	"movie":                KindMovie,
	"episode":              KindEpisode,
	"episode-wanted":       KindEpisodeWanted,
	"movie-wanted":         KindMovieWanted,
	"settings":             KindSettings,
	"languages":            KindLanguages,
	"badges":               KindBadges,
	"movie-history":        KindMovieHistory,
	"episode-history":      KindEpisodeHistory,
	"movie-blacklist":      KindMovieBlacklist,
	"episode-blacklist":    KindEpisodeBlacklist,
	"reset-episode-wanted": KindResetEpisodeWanted,
	"reset-movie-wanted":   KindResetMovieWanted,
	"task":                 KindTask,
	"jobs":                 KindJobs,
}

// ParseKind maps a wire event name to its [Kind]. ok is false for names
// outside the closed set; callers skip those rather than fail.
func ParseKind(name string) (Kind, bool) {
	kind, ok := kindNames[name]
	return kind, ok
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Action distinguishes upsert from remove semantics on an event.
type Action int

const (
	ActionUpdate Action = iota
	ActionDelete
)

// ParseAction maps the wire action string. Anything other than "delete" is
// treated as an update, matching the backend's default.
func ParseAction(s string) Action {
	if s == "delete" {
		return ActionDelete
	}
	return ActionUpdate
}

func (a Action) String() string {
	if a == ActionDelete {
		return "delete"
	}
	return "update"
}

// Event is one decoded push-channel notification.
type Event struct {
	Kind    Kind
	Action  Action
	Payload json.RawMessage
}
