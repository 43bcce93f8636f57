package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/p-org/prt-go/process"
	"github.com/p-org/prt-go/value"
)

// webSocketServer exposes MkMachine/Send/GetMachineState over a
// JSON-over-websocket control channel, mirroring cmd/mcrew's
// service-ws.go control plane but scoped to this runtime's three
// operations rather than sheens' general message-injection API.
type webSocketServer struct {
	pr       *process.Process
	upgrader websocket.Upgrader
}

func newWebSocketServer(pr *process.Process) *webSocketServer {
	return &webSocketServer{pr: pr}
}

// controlRequest is the one JSON shape the control channel accepts:
// {"op":"send","machine":0,"event":1,"args":[42]}
// {"op":"mkMachine","name":"A","args":[]}
// {"op":"getState","machine":0}
type controlRequest struct {
	Op      string  `json:"op"`
	Machine uint32  `json:"machine"`
	Name    string  `json:"name,omitempty"`
	Event   int     `json:"event,omitempty"`
	Args    []int64 `json:"args,omitempty"`
}

type controlResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Machine uint32 `json:"machine,omitempty"`
	State   string `json:"state,omitempty"`
}

func (s *webSocketServer) ListenAndServe(addr string) error {
	http.HandleFunc("/control", s.handle)
	log.Printf("prtsim: websocket control channel on %s/control", addr)
	return http.ListenAndServe(addr, nil)
}

func (s *webSocketServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("prtsim: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req controlRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp := s.dispatch(req)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (s *webSocketServer) dispatch(req controlRequest) controlResponse {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch req.Op {
	case "mkMachine":
		args := make([]value.Arg, len(req.Args))
		for i, n := range req.Args {
			args[i] = value.CloneArg(value.NewInt(n))
		}
		mid, err := s.pr.MkMachine(ctx, req.Name, args)
		if err != nil {
			return controlResponse{Error: err.Error()}
		}
		return controlResponse{OK: true, Machine: mid.Index}

	case "send":
		receiver := value.MID{ProcessGUID: "prtsim-1", Index: req.Machine}
		args := make([]value.Arg, len(req.Args))
		for i, n := range req.Args {
			args[i] = value.CloneArg(value.NewInt(n))
		}
		if err := s.pr.Send(ctx, nil, receiver, req.Event, args); err != nil {
			return controlResponse{Error: err.Error()}
		}
		return controlResponse{OK: true}

	case "getState":
		receiver := value.MID{ProcessGUID: "prtsim-1", Index: req.Machine}
		inst, err := s.pr.GetMachine(receiver)
		if err != nil {
			return controlResponse{Error: err.Error()}
		}
		snap := s.pr.GetMachineState(inst)
		return controlResponse{OK: true, Machine: req.Machine, State: snap.StateName}

	default:
		return controlResponse{Error: "prtsim: unknown op " + req.Op}
	}
}
