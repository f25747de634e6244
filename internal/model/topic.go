package model

import "strings"

// CustomTopicID marks a selection that includes free-text custom topics.
const CustomTopicID = "custom"

// Topic is one subject that items are checked against.
type Topic struct {
	ID    string
	Label string
}

// Catalog is the fixed set of selectable topics.
var Catalog = []Topic{
	{ID: "programming", Label: "programming"},
	{ID: "mathematics", Label: "mathematics"},
	{ID: "physics", Label: "physics"},
	{ID: "chemistry", Label: "chemistry"},
	{ID: "biology", Label: "biology"},
	{ID: "history", Label: "history"},
	{ID: "language", Label: "language learning"},
	{ID: "economics", Label: "economics"},
	{ID: "design", Label: "art & design"},
	{ID: "music", Label: "music"},
	{ID: "exam", Label: "exam preparation"},
}

// LookupTopic finds a catalog topic by id, ignoring case.
func LookupTopic(id string) (Topic, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, topic := range Catalog {
		if topic.ID == id {
			return topic, true
		}
	}
	return Topic{}, false
}
