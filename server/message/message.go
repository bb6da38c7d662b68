package message

type Type string

const (
	Room    Type = "room"
	Players Type = "players"
	Round   Type = "round"
	Active  Type = "active"
	Error   Type = "error"
)

type Message struct {
	Type Type
	Msg  interface{}
}
