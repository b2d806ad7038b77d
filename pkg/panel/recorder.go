package panel

import "sync"

// Recorder is a Renderer that keeps every scene it is given. The CLI uses
// it for text output; tests use it to inspect renders.
type Recorder struct {
	mu     sync.Mutex
	scenes []Scene
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Draw(s Scene) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes = append(r.scenes, s)
	return nil
}

// Last returns the most recent scene.
func (r *Recorder) Last() (Scene, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.scenes) == 0 {
		return Scene{}, false
	}
	return r.scenes[len(r.scenes)-1], true
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scenes)
}

func (r *Recorder) Scenes() []Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Scene(nil), r.scenes...)
}
