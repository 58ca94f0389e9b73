package timeline

import "encoding/json"

// FilterSet is an insertion-ordered mapping from filter instance id to the
// recorded application. Later entries compose after earlier ones.
type FilterSet struct {
	order []string
	byID  map[string]AppliedFilter
}

// Add appends an application. An existing id is replaced in place.
func (fs *FilterSet) Add(f AppliedFilter) {
	if fs.byID == nil {
		fs.byID = make(map[string]AppliedFilter)
	}
	if _, ok := fs.byID[f.ID]; !ok {
		fs.order = append(fs.order, f.ID)
	}
	fs.byID[f.ID] = f
}

func (fs *FilterSet) Get(id string) (AppliedFilter, bool) {
	f, ok := fs.byID[id]
	return f, ok
}

// Remove deletes an application and reports whether it existed.
func (fs *FilterSet) Remove(id string) bool {
	if _, ok := fs.byID[id]; !ok {
		return false
	}
	delete(fs.byID, id)
	for i, oid := range fs.order {
		if oid == id {
			fs.order = append(fs.order[:i], fs.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every application and returns the removed ids in order.
func (fs *FilterSet) Clear() []string {
	removed := fs.order
	fs.order = nil
	fs.byID = nil
	if removed == nil {
		removed = []string{}
	}
	return removed
}

func (fs *FilterSet) Len() int {
	return len(fs.order)
}

// List returns the applications in insertion order.
func (fs *FilterSet) List() []AppliedFilter {
	out := make([]AppliedFilter, 0, len(fs.order))
	for _, id := range fs.order {
		out = append(out, fs.byID[id])
	}
	return out
}

// Expressions returns the compiled expressions in application order.
func (fs *FilterSet) Expressions() []string {
	out := make([]string, 0, len(fs.order))
	for _, id := range fs.order {
		out = append(out, fs.byID[id].Expression)
	}
	return out
}

func (fs FilterSet) clone() FilterSet {
	var c FilterSet
	for _, id := range fs.order {
		f := fs.byID[id]
		if f.Params != nil {
			params := make(map[string]string, len(f.Params))
			for k, v := range f.Params {
				params[k] = v
			}
			f.Params = params
		}
		c.Add(f)
	}
	return c
}

// MarshalJSON encodes the set as an ordered array.
func (fs FilterSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(fs.List())
}

func (fs *FilterSet) UnmarshalJSON(data []byte) error {
	var list []AppliedFilter
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*fs = FilterSet{}
	for _, f := range list {
		fs.Add(f)
	}
	return nil
}
