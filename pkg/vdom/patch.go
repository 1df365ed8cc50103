package vdom

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchInsertNode  PatchOp = 0x04 // Insert new node
	PatchRemoveNode  PatchOp = 0x05 // Remove node
	PatchReplaceNode PatchOp = 0x07 // Replace node entirely
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchInsertNode:
		return "InsertNode"
	case PatchRemoveNode:
		return "RemoveNode"
	case PatchReplaceNode:
		return "ReplaceNode"
	default:
		return "Unknown"
	}
}

// Patch represents a single change to a container's children.
type Patch struct {
	Op       PatchOp // Operation type
	ParentID string  // id attribute of the container element
	ID       string  // Marker of the node inserted, removed or swapped in
	RefID    string  // Sibling the node was inserted before, if any
	OldID    string  // Marker replaced by ReplaceNode
	Index    int     // Position of the node after the change
	Node     *VNode  // For InsertNode/ReplaceNode
}
