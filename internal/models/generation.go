package models

// AST is an opaque syntax tree owned by the language frontend
type AST = any

// ModuleKind tags the EmittedModule variants
type ModuleKind int

const (
	OriginalKind ModuleKind = iota
	MergedKind
	RedirectKind
)

func (k ModuleKind) String() string {
	switch k {
	case OriginalKind:
		return "original"
	case MergedKind:
		return "merged"
	case RedirectKind:
		return "redirect"
	default:
		return "unknown"
	}
}

// EmittedModule is one entry of an OutputSet: an OriginalModule, a MergedModule
// or a RedirectModule
type EmittedModule interface {
	ModuleID() ModuleID
	Kind() ModuleKind
	emitted()
}

// OriginalModule is a rewritten source module emitted unchanged
type OriginalModule struct {
	ID  ModuleID
	AST AST
}

func (m *OriginalModule) ModuleID() ModuleID { return m.ID }
func (m *OriginalModule) Kind() ModuleKind   { return OriginalKind }
func (m *OriginalModule) emitted()           {}

// MergedMember is one former module embedded in a MergedModule
type MergedMember struct {
	ID   ModuleID // original module id, now served by a redirect
	Name string   // key of the member inside the merged mapping
	AST  AST
}

// MergedModule holds every member of one cyclic component keyed by logical name
type MergedModule struct {
	ID        ModuleID
	Component int // discovery index of the component
	Members   []MergedMember
}

func (m *MergedModule) ModuleID() ModuleID { return m.ID }
func (m *MergedModule) Kind() ModuleKind   { return MergedKind }
func (m *MergedModule) emitted()           {}

// Name returns the loader name of the merged module
func (m *MergedModule) Name() string { return m.ID.LogicalName() }

// Member looks up a member by its former module id
func (m *MergedModule) Member(id ModuleID) (MergedMember, bool) {
	for _, member := range m.Members {
		if member.ID == id {
			return member, true
		}
	}
	return MergedMember{}, false
}

// RedirectModule replaces a cyclic member: it loads Target and returns the entry under Key
type RedirectModule struct {
	ID     ModuleID
	Target ModuleID
	Key    string
}

func (m *RedirectModule) ModuleID() ModuleID { return m.ID }
func (m *RedirectModule) Kind() ModuleKind   { return RedirectKind }
func (m *RedirectModule) emitted()           {}

// OutputSet maps module ids to emitted modules, iterating in insertion order.
// Phases build a fresh set with Clone rather than editing one in place.
type OutputSet struct {
	order   []ModuleID
	modules map[ModuleID]EmittedModule
}

// NewOutputSet creates an empty output set
func NewOutputSet() *OutputSet {
	return &OutputSet{modules: make(map[ModuleID]EmittedModule)}
}

// Put inserts m, replacing any entry with the same id in its original position
func (s *OutputSet) Put(m EmittedModule) {
	id := m.ModuleID()
	if _, ok := s.modules[id]; !ok {
		s.order = append(s.order, id)
	}
	s.modules[id] = m
}

func (s *OutputSet) Get(id ModuleID) (EmittedModule, bool) {
	m, ok := s.modules[id]
	return m, ok
}

func (s *OutputSet) Has(id ModuleID) bool {
	_, ok := s.modules[id]
	return ok
}

func (s *OutputSet) Len() int {
	return len(s.order)
}

// IDs returns the module ids in insertion order
func (s *OutputSet) IDs() []ModuleID {
	ids := make([]ModuleID, len(s.order))
	copy(ids, s.order)
	return ids
}

// Modules returns the emitted modules in insertion order
func (s *OutputSet) Modules() []EmittedModule {
	out := make([]EmittedModule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.modules[id])
	}
	return out
}

// Clone returns a shallow copy; modules are shared, the mapping is not
func (s *OutputSet) Clone() *OutputSet {
	clone := &OutputSet{
		order:   make([]ModuleID, len(s.order)),
		modules: make(map[ModuleID]EmittedModule, len(s.modules)),
	}
	copy(clone.order, s.order)
	for id, m := range s.modules {
		clone.modules[id] = m
	}
	return clone
}

// CountByKind tallies modules per variant
func (s *OutputSet) CountByKind() map[ModuleKind]int {
	counts := make(map[ModuleKind]int)
	for _, m := range s.modules {
		counts[m.Kind()]++
	}
	return counts
}

// GeneratedModule is the rendered text of one emitted module
type GeneratedModule struct {
	ID      ModuleID
	Kind    ModuleKind
	Content string
}
