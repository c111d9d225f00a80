// Package surface provides the editable document tree shared by every
// editing mode.
//
// A Surface is a mutable tree of typed nodes plus the current selection.
// It is both the rendering target (the host draws it) and the mutation
// target (keystrokes edit it directly before the reconciliation engine
// re-renders the affected block).
//
// # Node Kinds
//
// Every node carries a Kind tag. Block kinds (paragraph, heading, list,
// table, code block, ...) form the structure; inline kinds (text, marker,
// strong, link, ...) hold content. Text and Marker nodes are the only
// leaves that carry characters; the selection always points into one of
// them.
//
// Marker nodes hold visible markdown syntax (the "**" around bold text in
// instant-rendering mode). They serialize verbatim, so deleting a marker
// character changes the markdown the same way deleting it from the source
// would.
//
// # Traversal
//
// Ancestor lookups go through a single generic helper, Closest, which
// takes a KindSet:
//
//	cell := surface.Closest(n, surface.KindSetOf(surface.KindTableCell))
//
// # Thread Safety
//
// A Surface is not safe for concurrent use. The mode controller serializes
// access with its own mutex.
package surface
