package enums

type MediaKind string

const (
	MediaKindPhoto    MediaKind = "photo"
	MediaKindVideo    MediaKind = "video"
	MediaKindDocument MediaKind = "document"
)
