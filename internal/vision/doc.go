// Package vision owns the frame data model and the collaborators that
// produce it: frame sources and the face detection client.
//
// Frames are immutable after creation and shared by reference; nothing
// downstream may modify Frame.Data. Regions carry their frame's sequence
// number so recognition results can be ordered per tracked face.
package vision
