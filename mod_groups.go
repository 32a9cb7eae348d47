package plume

import (
	"github.com/google/uuid"
)

type GroupId string

// GroupServer owns every particle group of the app. Render systems iterate
// groups in creation order, so draw order is stable across frames.
type GroupServer struct {
	groups map[GroupId]*Group
	order  []GroupId

	strict bool
	log    Logger
}

func (s *GroupServer) CreateGroup(maxParticles int) *Group {
	g := NewGroup(maxParticles)
	g.id = makeGroupId()
	g.SetLogger(s.log)
	g.SetStrict(s.strict)

	s.groups[g.id] = g
	s.order = append(s.order, g.id)
	return g
}

func (s *GroupServer) Get(id GroupId) (*Group, bool) {
	g, ok := s.groups[id]
	return g, ok
}

// DestroyGroup detaches every emitter of the group and drops it from the
// server. Destroying an unknown id is a no-op.
func (s *GroupServer) DestroyGroup(id GroupId) {
	g, ok := s.groups[id]
	if !ok {
		return
	}
	for _, em := range g.Emitters() {
		g.RemoveEmitter(em)
	}
	delete(s.groups, id)
	for i, gid := range s.order {
		if gid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Groups returns the live groups in creation order.
func (s *GroupServer) Groups() []*Group {
	out := make([]*Group, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.groups[id])
	}
	return out
}

func (s *GroupServer) Count() int {
	return len(s.order)
}

// GroupServerModule provides the GroupServer resource. Install it after
// LoggingModule so strict-mode diagnostics reach the configured logger.
type GroupServerModule struct {
	Strict bool
}

func (m GroupServerModule) Install(app *App, cmd *Commands) {
	app.addResources(&GroupServer{
		groups: make(map[GroupId]*Group),
		strict: m.Strict,
		log:    app.Logger(),
	})
}

func makeGroupId() GroupId {
	return GroupId(uuid.NewString())
}
