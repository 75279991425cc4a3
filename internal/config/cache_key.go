package config

type CacheKeyStruct struct {
	// PublishedExams maps exam id -> versioned exam envelope.
	PublishedExams string
	// PublishedOrder is a sorted set of exam ids scored by publish sequence.
	PublishedOrder string
	// PublishedSeq is the counter feeding PublishedOrder scores.
	PublishedSeq string
	// ExamEventsChannel is the Pub/Sub channel carrying exam lifecycle events.
	ExamEventsChannel string
}

var CacheKey = &CacheKeyStruct{
	PublishedExams:    "exams:published:data",
	PublishedOrder:    "exams:published:order",
	PublishedSeq:      "exams:published:seq",
	ExamEventsChannel: "exams:events",
}
