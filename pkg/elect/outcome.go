package elect

type ElectionStatus int

const (
	Unknown ElectionStatus = iota
	Won
	Lost
	Error
	Cancelled
)

func (s ElectionStatus) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Error:
		return "error"
	case Cancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

type Outcome struct {
	Status ElectionStatus
	Error  error // only set if Status is Error or Cancelled
}
