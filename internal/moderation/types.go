package moderation

import (
	"errors"
	"time"
)

var ErrInvalidEvent = errors.New("moderation: invalid event")

type EventKind string

const (
	EventMessage EventKind = "message"
	EventJoin    EventKind = "join"
)

// Attachment carries the metadata the content detector scores; the file body
// itself is never fetched.
type Attachment struct {
	Filename string
	Size     int64
}

// Event is the transport-agnostic view of one inbound platform event. The bot
// layer builds it from discordgo payloads; tests build it directly.
type Event struct {
	Kind             EventKind
	GuildID          string
	AuthorID         string
	AuthorTag        string
	Username         string
	ChannelID        string
	MessageID        string
	Timestamp        time.Time
	Content          string
	Attachments      []Attachment
	MentionedUserIDs []string
	MentionsEveryone bool
	AccountCreatedAt time.Time
	HasDefaultAvatar bool
}

func (e Event) Validate() error {
	if e.GuildID == "" || e.AuthorID == "" || e.Timestamp.IsZero() {
		return ErrInvalidEvent
	}
	return nil
}

type Category string

const (
	CategorySpam     Category = "spam"
	CategoryContent  Category = "content"
	CategorySecurity Category = "security"
	CategoryRaid     Category = "raid"
)

// DetectionResult is one detector's verdict for one event. It is consumed
// synchronously by the aggregator and never persisted.
type DetectionResult struct {
	Triggered  bool
	Category   Category
	Confidence int
	Severity   int
	Reasons    []string
}

func Disabled(category Category) DetectionResult {
	return DetectionResult{Category: category, Reasons: []string{"detector disabled"}}
}

type Action string

const (
	ActionNone    Action = "none"
	ActionWarn    Action = "warn"
	ActionDelete  Action = "delete"
	ActionTimeout Action = "timeout"
	ActionKick    Action = "kick"
	ActionBan     Action = "ban"
)

var actionRank = map[Action]int{
	ActionNone:    0,
	ActionWarn:    1,
	ActionDelete:  2,
	ActionTimeout: 3,
	ActionKick:    4,
	ActionBan:     5,
}

// AtLeast reports whether a is as harsh as b.
func (a Action) AtLeast(b Action) bool {
	return actionRank[a] >= actionRank[b]
}

// Stronger returns the harsher of two actions.
func Stronger(a, b Action) Action {
	if actionRank[b] > actionRank[a] {
		return b
	}
	return a
}

// Decision is the engine's final verdict for one event, handed to the
// enforcement executor. Once produced it is a hard commit point.
type Decision struct {
	ID             string
	GuildID        string
	UserID         string
	ChannelID      string
	MessageID      string
	Action         Action
	DeleteMessage  bool
	Category       Category
	Severity       int
	Confidence     int
	Reasons        []string
	ViolationCount int
}
