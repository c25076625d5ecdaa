// Package sse provides Server-Sent Events client management for live landing page reloads.
package sse

import (
	"sync"

	"github.com/debemdeboas/the-kennel/internal/model"
)

// MsgReload tells a landing page viewer that the owner's layout changed.
const MsgReload = "reload"

type Client struct {
	Msg   chan string
	Owner model.OwnerID
}

func NewClient(owner model.OwnerID) *Client {
	return &Client{Msg: make(chan string, 1), Owner: owner}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.Msg)
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends msg to every client watching owner. Clients with a full buffer miss it.
func (s *SSEClients) Broadcast(owner model.OwnerID, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.Owner == owner {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}
