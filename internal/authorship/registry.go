package authorship

// AuthorInfo describes one author for rendering gutter and inline marks.
type AuthorInfo struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// Registry assigns a stable index to each author the first time they commit
// an operation. Atoms reference authors by that index. Not safe for
// concurrent use; the per-document session serializes access.
type Registry struct {
	infos  []AuthorInfo
	byUser map[string]int
}

// NewRegistry creates an empty author registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]int)}
}

// Index returns the index for the author, registering them on first sight.
// Name and color of an already known author are refreshed when non-empty.
func (r *Registry) Index(info AuthorInfo) int {
	if idx, ok := r.byUser[info.UserID]; ok {
		if info.Name != "" {
			r.infos[idx].Name = info.Name
		}

		if info.Color != "" {
			r.infos[idx].Color = info.Color
		}

		return idx
	}

	r.infos = append(r.infos, info)
	idx := len(r.infos) - 1
	r.byUser[info.UserID] = idx

	return idx
}

// Authors returns a copy of the registered authors in index order.
func (r *Registry) Authors() []AuthorInfo {
	return append([]AuthorInfo(nil), r.infos...)
}

// Restore replaces the registry content, used when loading from storage.
func (r *Registry) Restore(infos []AuthorInfo) {
	r.infos = append([]AuthorInfo(nil), infos...)
	r.byUser = make(map[string]int, len(infos))

	for i, info := range infos {
		r.byUser[info.UserID] = i
	}
}
