package domain

// Viewer is the acting identity passed explicitly into every messaging operation.
// It is either Authenticated or Anonymous.
type Viewer interface {
	isViewer()
}

// Authenticated a resolved, logged-in user
type Authenticated struct {
	ID string
}

// Anonymous a caller without a resolvable user
type Anonymous struct{}

func (Authenticated) isViewer() {}
func (Anonymous) isViewer()     {}

// ViewerFromID returns Anonymous for an empty id
func ViewerFromID(id string) Viewer {
	if id == "" {
		return Anonymous{}
	}
	return Authenticated{ID: id}
}

// UserID returns the viewer's id and whether the viewer is authenticated
func UserID(v Viewer) (string, bool) {
	switch u := v.(type) {
	case Authenticated:
		return u.ID, u.ID != ""
	case *Authenticated:
		if u == nil {
			return "", false
		}
		return u.ID, u.ID != ""
	default:
		return "", false
	}
}
