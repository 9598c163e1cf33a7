package valueobjects

import "strings"

// EdgeID identifies an edge element in a rendered graph.
// Backends may omit edge ids; the renderer then derives one from the
// edge's endpoints and label so identical edges map to one element.
type EdgeID string

var edgeIDEscaper = strings.NewReplacer(`\`, `\\`, "_", `\_`)

// NewEdgeID derives an edge id from (source, target, label).
// It is a pure function of its inputs. Parts are joined with "_" and any
// "_" or "\" inside a part is escaped, so distinct triples never collide;
// for plain word ids this yields "source_target_label".
func NewEdgeID(source, target, label string) EdgeID {
	return EdgeID(edgeIDEscaper.Replace(source) + "_" +
		edgeIDEscaper.Replace(target) + "_" +
		edgeIDEscaper.Replace(label))
}

// String returns the string representation of the EdgeID
func (id EdgeID) String() string {
	return string(id)
}

// IsZero checks if the EdgeID is the zero value
func (id EdgeID) IsZero() bool {
	return id == ""
}
