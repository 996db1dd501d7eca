package websocket

import "nhooyr.io/websocket"

// Close codes that mean the peer went away on purpose.
var expectedCloseCodes = []websocket.StatusCode{
	websocket.StatusNormalClosure,
	websocket.StatusGoingAway,
	websocket.StatusNoStatusRcvd,
}
