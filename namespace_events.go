package sio

type NamespaceConnectionFunc func(socket ServerSocket)

// Connection handlers run once the socket is connected,
// before any event from the client is dispatched.
func (n *Namespace) OnConnection(f NamespaceConnectionFunc) {
	n.connectionHandlers.on(f)
}

func (n *Namespace) OnceConnection(f NamespaceConnectionFunc) {
	n.connectionHandlers.once(f)
}

func (n *Namespace) OffConnection(f ...NamespaceConnectionFunc) {
	n.connectionHandlers.off(f...)
}
