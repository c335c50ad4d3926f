package protocol

// join-room
type JoinRoom struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// welcome: tells a freshly joined connection who it is.
type Welcome struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	RoomID string `json:"roomId"`
}

// One roster row of user-list. The whole roster is always sent.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	IsHost bool   `json:"isHost"`
}

type StartGame struct {
	RoomID string `json:"roomId"`
	Rounds int    `json:"rounds"`
}

// GameStarted announces a new round. RealWord is only filled in the copy
// delivered to the drawer; everyone else must ignore it.
type GameStarted struct {
	DrawerID   string `json:"drawerId"`
	DrawerName string `json:"drawerName"`
	WordHint   string `json:"wordHint"`
	RoundsLeft int    `json:"roundsLeft"`
	RealWord   string `json:"realWord"`
	Seconds    int    `json:"seconds"`
}

type Hint struct {
	Hint string `json:"hint"`
}

// Drawing is one stroke segment. Size is the stroke width in pixels.
type Drawing struct {
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Color string  `json:"color"`
	Size  float64 `json:"size"`
	Room  string  `json:"room"`
}

// ChatMessage is used for both send-message and receive-message.
type ChatMessage struct {
	Room    string `json:"room"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

type CorrectGuess struct {
	Guesser string `json:"guesser"`
}

// GameEnded terminates a round (Final=false) or the whole game (Final=true).
type GameEnded struct {
	Message  string   `json:"message"`
	Reason   string   `json:"reason,omitempty"`
	Word     string   `json:"word,omitempty"`
	Final    bool     `json:"final"`
	Winners  []string `json:"winners,omitempty"`
	TopScore int      `json:"topScore"`
}

type Error struct {
	Message string `json:"message"`
}
