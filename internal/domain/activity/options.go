package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	DocumentID   *string
	ActorID      *string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
