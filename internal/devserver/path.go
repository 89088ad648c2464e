package devserver

// PathPartType is the kind of one route path segment
type PathPartType int

const (
	StaticPart PathPartType = iota
	ParameterPart
	WildcardPart
)

// PathPart is one segment of a route path
type PathPart struct {
	Type  PathPartType
	Value string // literal text for static parts, the name for parameters
}

// Path is a route path written with {name} parameters and a trailing {*}
// wildcard, translated into each engine's own syntax
type Path string

// Parts splits the path into static text, parameters and wildcards
func (p Path) Parts() []PathPart {
	path := string(p)
	var parts []PathPart

	i := 0
	for i < len(path) {
		if path[i] == '{' {
			j := i + 1
			for j < len(path) && path[j] != '}' {
				j++
			}
			if j < len(path) {
				name := path[i+1 : j]
				if name == "*" {
					parts = append(parts, PathPart{Type: WildcardPart, Value: "*"})
				} else {
					parts = append(parts, PathPart{Type: ParameterPart, Value: name})
				}
				i = j + 1
				continue
			}
			// Malformed, treat as static
			parts = append(parts, PathPart{Type: StaticPart, Value: path[i:]})
			break
		}

		start := i
		for i < len(path) && path[i] != '{' {
			i++
		}
		parts = append(parts, PathPart{Type: StaticPart, Value: path[start:i]})
	}

	return parts
}

// format renders the path with the parameter and wildcard syntax of an engine
func (p Path) format(param func(name string) string, wildcard string) string {
	out := ""
	for _, part := range p.Parts() {
		switch part.Type {
		case ParameterPart:
			out += param(part.Value)
		case WildcardPart:
			out += wildcard
		default:
			out += part.Value
		}
	}
	return out
}

func colonParam(name string) string { return ":" + name }
