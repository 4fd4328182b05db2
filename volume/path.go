package volume

import "strings"

// pathStack maintains the current-path string described in spec.md section
// 4.5: a string beginning with '/', with 'cd name' appending 'name/' and
// 'cd ..' stripping the last component (a no-op at the root).
type pathStack struct {
	components []string
}

func newPathStack() pathStack {
	return pathStack{components: nil}
}

// Push appends a directory name as the new last path component.
func (p *pathStack) Push(name string) {
	p.components = append(p.components, name)
}

// Pop removes the last path component, if any.
func (p *pathStack) Pop() {
	if len(p.components) == 0 {
		return
	}
	p.components = p.components[:len(p.components)-1]
}

// String renders the path stack as "/a/b/" (or "/" at the root).
func (p *pathStack) String() string {
	if len(p.components) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.components, "/") + "/"
}
