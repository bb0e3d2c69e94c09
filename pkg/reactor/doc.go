// Package reactor's two backends (reactor_linux.go, reactor_bsd.go) are
// selected at compile time by build tag; there is deliberately no
// unified kernel data type between them, only the Instance/Handle interface in
// reactor.go.
package reactor
