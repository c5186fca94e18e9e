package minigame

type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

type Square struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Size int `json:"size"`
}

func (s Square) overlaps(o Square) bool {
	return s.X < o.X+o.Size &&
		s.X+s.Size > o.X &&
		s.Y < o.Y+o.Size &&
		s.Y+s.Size > o.Y
}

type State struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Player Square `json:"player"`
	Goal   Square `json:"goal"`
	Won    bool   `json:"won"`
}

// DirectionForKey maps keyboard key names to moves.
func DirectionForKey(key string) (Direction, bool) {
	switch key {
	case "ArrowUp":
		return Up, true
	case "ArrowDown":
		return Down, true
	case "ArrowLeft":
		return Left, true
	case "ArrowRight":
		return Right, true
	}
	return "", false
}
