package main

import (
	"net/http"

	mapset "github.com/deckarep/golang-set/v2"
	sio "github.com/karagenc/sio-core"
)

// onConnection installs the demo handlers on a socket of the main namespace:
//
//	["join", room]
//	["leave", room]
//	["say", room, msg]  broadcast to the room, sender excluded
//
// Any other event is echoed back to the sender.
func (a *app) onConnection(socket sio.ServerSocket) {
	logger := a.logger.With().Str("sid", string(socket.ID())).Logger()
	logger.Debug().Msg("connected")

	socket.OnEvent(func(v ...any) {
		name, _ := stringArg(v, 0)
		switch name {
		case "join":
			room, ok := stringArg(v, 1)
			if !ok {
				break
			}
			err := socket.Join(sio.Room(room))
			if err != nil {
				logger.Warn().Err(err).Str("room", room).Msg("join failed")
			}
			return
		case "leave":
			room, ok := stringArg(v, 1)
			if !ok {
				break
			}
			err := socket.Leave(sio.Room(room))
			if err != nil {
				logger.Warn().Err(err).Str("room", room).Msg("leave failed")
			}
			return
		case "say":
			room, ok := stringArg(v, 1)
			if !ok || len(v) < 3 {
				break
			}
			err := socket.Broadcast().To(sio.Room(room)).Emit("say", room, string(socket.ID()), v[2])
			if err != nil {
				logger.Warn().Err(err).Str("room", room).Msg("say failed")
			}
			return
		}

		err := socket.Send(v...)
		if err != nil {
			logger.Warn().Err(err).Msg("echo failed")
		}
	})

	socket.OnError(func(err error) {
		logger.Warn().Err(err).Msg("socket error")
	})

	socket.OnDisconnect(func(reason sio.Reason) {
		logger.Debug().Str("reason", string(reason)).Msg("disconnected")
	})
}

func stringArg(v []any, i int) (string, bool) {
	if i >= len(v) {
		return "", false
	}
	s, ok := v[i].(string)
	return s, ok
}

type namespaceInfo struct {
	Name    string              `json:"name"`
	Sockets int                 `json:"sockets"`
	Servers int                 `json:"servers"`
	Rooms   map[string][]string `json:"rooms"`
}

// serveNamespaces lists the namespaces with their rooms and members.
// Socket self-rooms are left out.
func (a *app) serveNamespaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	nsps := a.io.Namespaces()
	infos := make([]namespaceInfo, 0, len(nsps))
	for _, nsp := range nsps {
		adp := nsp.Adapter()
		info := namespaceInfo{
			Name:    nsp.Name(),
			Sockets: len(nsp.Sockets()),
			Servers: adp.ServerCount(),
			Rooms:   make(map[string][]string),
		}
		adp.Rooms().Each(func(room sio.Room) bool {
			sids := adp.Sockets(mapset.NewThreadUnsafeSet(room))
			if sids.Cardinality() == 1 && sids.Contains(sio.SocketID(room)) {
				return false
			}
			members := make([]string, 0, sids.Cardinality())
			sids.Each(func(sid sio.SocketID) bool {
				members = append(members, string(sid))
				return false
			})
			info.Rooms[string(room)] = members
			return false
		})
		infos = append(infos, info)
	}

	data, err := a.json.Marshal(infos)
	if err != nil {
		a.logger.Error().Err(err).Msg("encode namespaces")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
