package sio

type (
	// v holds the decoded arguments of the EVENT packet,
	// conventionally starting with the event name.
	ServerSocketEventFunc         func(v ...any)
	ServerSocketErrorFunc         func(err error)
	ServerSocketDisconnectingFunc func(reason Reason)
	ServerSocketDisconnectFunc    func(reason Reason)
)

func (s *serverSocket) OnEvent(f ServerSocketEventFunc) {
	s.eventHandlers.on(f)
}

func (s *serverSocket) OnceEvent(f ServerSocketEventFunc) {
	s.eventHandlers.once(f)
}

func (s *serverSocket) OffEvent(f ...ServerSocketEventFunc) {
	s.eventHandlers.off(f...)
}

func (s *serverSocket) OnError(f ServerSocketErrorFunc) {
	s.errorHandlers.on(f)
}

func (s *serverSocket) OnceError(f ServerSocketErrorFunc) {
	s.errorHandlers.once(f)
}

func (s *serverSocket) OffError(f ...ServerSocketErrorFunc) {
	s.errorHandlers.off(f...)
}

func (s *serverSocket) OnDisconnecting(f ServerSocketDisconnectingFunc) {
	s.disconnectingHandlers.on(f)
}

func (s *serverSocket) OnceDisconnecting(f ServerSocketDisconnectingFunc) {
	s.disconnectingHandlers.once(f)
}

func (s *serverSocket) OffDisconnecting(f ...ServerSocketDisconnectingFunc) {
	s.disconnectingHandlers.off(f...)
}

func (s *serverSocket) OnDisconnect(f ServerSocketDisconnectFunc) {
	s.disconnectHandlers.on(f)
}

func (s *serverSocket) OnceDisconnect(f ServerSocketDisconnectFunc) {
	s.disconnectHandlers.once(f)
}

func (s *serverSocket) OffDisconnect(f ...ServerSocketDisconnectFunc) {
	s.disconnectHandlers.off(f...)
}

func (s *serverSocket) OffAll() {
	s.eventHandlers.offAll()
	s.errorHandlers.offAll()
	s.disconnectingHandlers.offAll()
	s.disconnectHandlers.offAll()
}
