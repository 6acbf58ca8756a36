package enums

// Direction distinguishes the two relay paths a media batch can travel:
// from a private chat into its forum topic, or from a topic back to the user.
type Direction string

const (
	DirectionUserToTopic Direction = "p2t"
	DirectionTopicToUser Direction = "t2p"
)
