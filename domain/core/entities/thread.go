package entities

import "strings"

// Thread is one persisted graph owned by a user.
// Threads are created by the backend; the client only references them.
type Thread struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// DisplayName returns the name, or a short form of the id when the
// backend did not supply one.
func (t Thread) DisplayName() string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	short := []rune(t.ID)
	if len(short) > 6 {
		short = short[:6]
	}
	return "Graph " + string(short) + "..."
}

// GraphName is the name the backend addresses this graph by in
// update and process-text requests.
func (t Thread) GraphName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// FindThread returns the thread with the given id, if present.
func FindThread(threads []Thread, id string) (Thread, bool) {
	for _, t := range threads {
		if t.ID == id {
			return t, true
		}
	}
	return Thread{}, false
}
