// Package entity defines the core domain entities of the posting pipeline:
// the topic, the assembled post and its attached picture. All entities except
// the cached access token are created fresh per pipeline run and discarded
// at the end of the run.
package entity

import "time"

// Picture is raw binary image content with no metadata beyond the bytes.
// It is ephemeral, held only for the duration of one pipeline run.
type Picture []byte

// Post is a finished promotional post ready for delivery: the topic it was
// generated for, the (possibly length-normalized) text body and the
// illustrative picture.
type Post struct {
	Topic     string
	Text      string
	Picture   Picture
	Enriched  bool // whether the steering context carried a sourced article
	CreatedAt time.Time
}

// NewPost assembles a post for the given topic.
func NewPost(topic, text string, picture Picture, enriched bool) *Post {
	return &Post{
		Topic:     topic,
		Text:      text,
		Picture:   picture,
		Enriched:  enriched,
		CreatedAt: time.Now(),
	}
}

// Validate checks that the post carries everything delivery needs.
func (p *Post) Validate() error {
	if p.Topic == "" {
		return ErrEmptyTopic
	}
	if p.Text == "" {
		return ErrEmptyPost
	}
	if len(p.Picture) == 0 {
		return ErrEmptyPicture
	}
	return nil
}
