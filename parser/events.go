package parser

// EventID names a step of the parse.
type EventID int

const (
	RootNodeSpecification EventID = iota
	RootNodeDirectCreation
	RootNodePatternMatchCreation
	RootNodePatternMatchFailed
	EmptyLineSkipped
	FramePushed
	FramePopped
	FramePoppedForEarlyExit
	RootNodeNoFrame
	NodeAdded
	MatchFinished
	GarbageAtEnd
	PatternMatched
	PatternNotMatched
)

var eventNames = [...]string{
	"RootNodeSpecification",
	"RootNodeDirectCreation",
	"RootNodePatternMatchCreation",
	"RootNodePatternMatchFailed",
	"EmptyLineSkipped",
	"FramePushed",
	"FramePopped",
	"FramePoppedForEarlyExit",
	"RootNodeNoFrame",
	"NodeAdded",
	"MatchFinished",
	"GarbageAtEnd",
	"PatternMatched",
	"PatternNotMatched",
}

func (id EventID) String() string {
	if id < 0 || int(id) >= len(eventNames) {
		return "Unknown"
	}
	return eventNames[id]
}

// Event is one entry of the parse log. Start and End are byte offsets into
// the parsed text. Rule, Pattern and Element are -1 when they do not apply.
type Event struct {
	Seq      int
	ID       EventID
	Start    int
	End      int
	Depth    int
	Rule     int
	Pattern  int
	Element  int
	TypeName string
}

// Logger receives parse events in order. Parsing does not depend on whether a
// logger is installed.
type Logger interface {
	Log(ev Event)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

func (f LoggerFunc) Log(ev Event) { f(ev) }

type nopLogger struct{}

func (nopLogger) Log(Event) {}
