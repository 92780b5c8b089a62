package database

// Story statuses.
const (
	StatusProcessed = "processed"
)

// Digest statuses.
const (
	DigestReady = "ready"
)

// Story is a classified news item as stored in the stories table.
type Story struct {
	ID             string
	URL            string
	Title          string
	Source         string
	SourceDomain   *string
	RawContent     *string
	Summary        string
	Topics         []string
	TrustScore     float64
	RelevanceScore float64
	PublishedAt    *string
	Status         string
	CreatedAt      *string
}

// HasTopic reports whether the story carries the given topic tag.
func (s Story) HasTopic(topic string) bool {
	for _, t := range s.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// DigestRecord is the persisted selection for one calendar date.
type DigestRecord struct {
	ID         int64
	DigestDate string
	StoryIDs   []string
	Status     string
	CreatedAt  *string
	UpdatedAt  *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalStories     int
	ProcessedStories int
	Digests          int
	LatestDigest     string
}
