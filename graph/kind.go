// ABOUTME: Handle data-kind tags and the compatibility table governing which ports may connect.
// ABOUTME: The any kind matches every kind in either position; all other kinds require an exact match.
package graph

// Kind is the data-kind tag carried by a handle, describing what flows
// through the port: generated text, an image, a video clip, and so on.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindModel Kind = "model"
	KindAny   Kind = "any"
)

// Kinds returns every registered kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindText, KindImage, KindVideo, KindAudio, KindModel, KindAny}
}

// Known reports whether k is one of the registered kinds.
func (k Kind) Known() bool {
	switch k {
	case KindText, KindImage, KindVideo, KindAudio, KindModel, KindAny:
		return true
	}
	return false
}

// Compatible reports whether data flowing out of a handle of kind source may
// enter a handle of kind target. The any kind is compatible with every kind
// in either position; otherwise the kinds must match exactly.
func Compatible(source, target Kind) bool {
	if source == KindAny || target == KindAny {
		return true
	}
	return source == target
}
