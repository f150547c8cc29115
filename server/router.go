package server

import (
	"net/http"

	"github.com/detrandix/tanks/server/domain"
	"github.com/detrandix/tanks/server/handler"
)

func Route(pubsub domain.PubSub, roomManager domain.RoomManager, codec domain.Codec, cfg domain.EndpointConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(pubsub, roomManager, codec, cfg))
	mux.Handle("/healthz", handler.NewHealthHandler())
	return mux
}
