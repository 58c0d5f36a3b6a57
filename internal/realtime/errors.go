package realtime

import "errors"

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrNotInRoom          = errors.New("sender is not bound to this room")
	ErrUnsupportedEvent   = errors.New("unsupported event type")
	ErrRoomCongested      = errors.New("room queue is full")
	ErrRelayClosed        = errors.New("relay is closed")
)
